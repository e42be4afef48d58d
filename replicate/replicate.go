// Package replicate pulls snapshot repository files from the source host
// and places them where the destination cluster's repository reads them.
package replicate

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// RemoteHost is the rsync source, user@host.
	RemoteHost string
	RemoteDir  string

	StagingDir  string
	ArtifactDir string

	// UID and GID own relocated files; -1 keeps the current owner.
	UID int
	GID int

	FileMode os.FileMode
	DirMode  os.FileMode

	Rsync string
	SSH   string
}

func DefaultConfig() Config {
	return Config{
		RemoteDir:   "/mnt/es_snapshots",
		StagingDir:  "/tmp/es_snapshots_staging",
		ArtifactDir: "/mnt/es_snapshots",
		UID:         -1,
		GID:         -1,
		FileMode:    0640,
		DirMode:     0750,
		Rsync:       "rsync",
		SSH:         "ssh",
	}
}

func (c Config) Validate() error {
	switch {
	case c.RemoteHost == "":
		return errors.NotValidf("empty remote host")
	case c.RemoteDir == "", c.StagingDir == "", c.ArtifactDir == "":
		return errors.NotValidf("empty replication directory")
	case filepath.Clean(c.StagingDir) == filepath.Clean(c.ArtifactDir):
		return errors.NotValidf("staging directory equal to artifact directory")
	}
	return nil
}

// CommandRunner runs an external command and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type Replicator struct {
	Config Config
	Runner CommandRunner
	Log    logrus.FieldLogger
}

func New(cfg Config, log logrus.FieldLogger) *Replicator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Replicator{Config: cfg, Runner: execRunner{}, Log: log}
}

// Run pulls and relocates. A failed transfer is returned; a failed
// relocation is only logged since files may already be in place.
func (r *Replicator) Run(ctx context.Context) error {
	if err := r.Config.Validate(); err != nil {
		return errors.Trace(err)
	}
	if err := r.Pull(ctx); err != nil {
		return errors.Trace(err)
	}
	moved, err := r.Relocate()
	if err != nil {
		r.Log.WithError(err).Warn("relocation incomplete, assuming files are already in place")
		return nil
	}
	r.Log.Infof("relocated %d files into %s", moved, r.Config.ArtifactDir)
	return nil
}

// Pull mirrors the remote directory into staging without overwriting files
// already present there.
func (r *Replicator) Pull(ctx context.Context) error {
	c := r.Config
	if err := os.MkdirAll(c.StagingDir, 0755); err != nil {
		return errors.Annotate(err, "cannot create staging directory")
	}

	args := []string{
		"-a",
		"--ignore-existing",
		"-e", c.SSH,
		c.RemoteHost + ":" + strings.TrimSuffix(c.RemoteDir, "/") + "/",
		strings.TrimSuffix(c.StagingDir, "/") + "/",
	}
	r.Log.Infof("pulling %s:%s into %s", c.RemoteHost, c.RemoteDir, c.StagingDir)
	out, err := r.Runner.Run(ctx, c.Rsync, args...)
	if err != nil {
		return errors.Annotatef(err, "rsync failed: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// Relocate moves staged entries into the artifact directory, keeping any
// file that is already there, then removes staging. It returns the number
// of files moved.
func (r *Replicator) Relocate() (int, error) {
	c := r.Config
	var (
		moved    int
		failures []string
	)

	err := filepath.Walk(c.StagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(c.StagingDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(c.ArtifactDir, rel)

		if info.IsDir() {
			if err := os.MkdirAll(target, c.DirMode); err != nil {
				return err
			}
			if err := r.fixup(target, c.DirMode); err != nil {
				failures = append(failures, err.Error())
			}
			return nil
		}

		if _, err := os.Lstat(target); err == nil {
			return nil
		}
		if err := move(path, target); err != nil {
			failures = append(failures, err.Error())
			return nil
		}
		if err := r.fixup(target, c.FileMode); err != nil {
			failures = append(failures, err.Error())
		}
		moved++
		return nil
	})
	if err != nil {
		return moved, errors.Annotate(err, "cannot walk staging directory")
	}

	if err := os.RemoveAll(c.StagingDir); err != nil {
		failures = append(failures, err.Error())
	}
	if len(failures) > 0 {
		return moved, errors.Errorf("%d relocation problems: %s", len(failures), strings.Join(failures, "; "))
	}
	return moved, nil
}

func (r *Replicator) fixup(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return err
	}
	if r.Config.UID < 0 && r.Config.GID < 0 {
		return nil
	}
	return os.Chown(path, r.Config.UID, r.Config.GID)
}

// move renames src to dst, copying when they live on different devices.
func move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
