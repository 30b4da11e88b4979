package gitrepo

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type Repository struct {
	ID            int
	Name          string
	SSHURLToRepo  string
	NamespacePath string
	Archived      bool
}

// DestinationDir maps a slash separated namespace path below root. It is pure: the same
// namespace always lands in the same directory.
func DestinationDir(root string, namespacePath string) string {
	return filepath.Join(root, filepath.FromSlash(strings.Trim(namespacePath, "/")))
}

// CheckoutName is the directory git clone creates for the address: the last path element
// without a trailing ".git".
func CheckoutName(cloneURL string) string {
	trimmed := strings.TrimRight(cloneURL, "/")
	if i := strings.LastIndex(trimmed, ":"); i >= 0 && !strings.Contains(trimmed[i:], "/") {
		// scp-like address with no path separator after the host, e.g. git@host:repo.git
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSuffix(path.Base(trimmed), ".git")
}

type CloneTask struct {
	Repository Repository
	Directory  string
}

func NewCloneTask(root string, repo Repository) CloneTask {
	return CloneTask{
		Repository: repo,
		Directory:  DestinationDir(root, repo.NamespacePath),
	}
}

func (task CloneTask) CheckoutDir() string {
	return filepath.Join(task.Directory, CheckoutName(task.Repository.SSHURLToRepo))
}

// IsCloned reports whether the checkout already holds a git repository from an earlier run.
func (task CloneTask) IsCloned() (bool, error) {
	_, err := os.Stat(filepath.Join(task.CheckoutDir(), ".git"))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
