package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/alexisbeaulieu97/sunbeam/internal/config"
	"github.com/alexisbeaulieu97/sunbeam/internal/console"
	"github.com/alexisbeaulieu97/sunbeam/internal/engine"
	"github.com/alexisbeaulieu97/sunbeam/internal/logger"
	"github.com/alexisbeaulieu97/sunbeam/internal/model"
)

// SyncPlansStep refreshes the terraform plans in the configure directory.
// Files already in the destination that the source does not carry, such as
// state and answers, are kept.
type SyncPlansStep struct {
	engine.Base
	Source string
	Dest   string
	// CacheDir holds the working clone when Source is a git repository.
	CacheDir string
	Git      bool
	Logger   *logger.Logger
}

// NewSyncPlansStep returns a step copying source into dest. Git sources are
// cloned into cacheDir first.
func NewSyncPlansStep(source, dest, cacheDir string, log *logger.Logger) *SyncPlansStep {
	if log == nil {
		log = logger.Nop()
	}
	return &SyncPlansStep{
		Base:     engine.NewBase("Sync Terraform plans", "Updating Terraform plans"),
		Source:   source,
		Dest:     dest,
		CacheDir: cacheDir,
		Git:      config.IsGitSource(source),
		Logger:   log,
	}
}

func (s *SyncPlansStep) Run(ctx context.Context, _ console.Status) model.Result {
	src := s.Source
	if s.Git {
		if err := s.syncClone(ctx); err != nil {
			s.Logger.Error(err, "syncing plan repository")
			return model.Failed(err.Error())
		}
		src = s.CacheDir
	}

	s.Logger.Debugf("updating %s from %s", s.Dest, src)
	if err := copyTree(src, s.Dest); err != nil {
		s.Logger.Error(err, "copying plans")
		return model.Failed(err.Error())
	}
	return model.Completed()
}

func (s *SyncPlansStep) syncClone(ctx context.Context) error {
	repo, err := git.PlainOpen(s.CacheDir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return s.clone(ctx)
	}
	if err != nil {
		return fmt.Errorf("open plan repository: %w", err)
	}

	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil || len(remote.Config().URLs) == 0 || remote.Config().URLs[0] != s.Source {
		s.Logger.Debugf("plan cache %s points elsewhere, recloning", s.CacheDir)
		if err := os.RemoveAll(s.CacheDir); err != nil {
			return fmt.Errorf("remove stale plan cache: %w", err)
		}
		return s.clone(ctx)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: git.DefaultRemoteName, Force: true})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", s.Source, err)
	}

	head, err := repo.Head()
	if err != nil {
		return fmt.Errorf("resolve plan HEAD: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(git.DefaultRemoteName, head.Name().Short()), true)
	if err != nil {
		return fmt.Errorf("resolve remote branch %s: %w", head.Name().Short(), err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open plan worktree: %w", err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: ref.Hash(), Mode: git.HardReset}); err != nil {
		return fmt.Errorf("reset plans to %s: %w", ref.Hash(), err)
	}
	return nil
}

func (s *SyncPlansStep) clone(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.CacheDir), 0o750); err != nil {
		return fmt.Errorf("create plan cache: %w", err)
	}
	if _, err := git.PlainCloneContext(ctx, s.CacheDir, false, &git.CloneOptions{URL: s.Source}); err != nil {
		return fmt.Errorf("clone %s: %w", s.Source, err)
	}
	return nil
}

// copyTree copies regular files from src into dst, overwriting files that
// exist in both. The .git directory is not copied.
func copyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("plan source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("plan source %s is not a directory", src)
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == git.GitDirName {
			return filepath.SkipDir
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
