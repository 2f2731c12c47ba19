package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// CreateFile creates fileName in directory, creating the directory first if needed. An empty directory means the
// working directory.
func CreateFile(directory string, fileName string) (*os.File, error) {
	filePath := fileName
	if directory != "" {
		if err := MakeDirectory(directory); err != nil {
			return nil, err
		}
		filePath = filepath.Join(directory, fileName)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return file, nil
}

// MakeDirectory creates a directory at the given path along with any missing parents. It is not an error for the
// directory to exist already, but it is for a file to exist at the path.
func MakeDirectory(directory string) error {
	info, err := os.Stat(directory)
	if os.IsNotExist(err) {
		return errors.WithStack(os.MkdirAll(directory, 0755))
	} else if err != nil {
		return errors.WithStack(err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot create directory %v, a file with the same name exists", directory)
	}
	return nil
}
