// File: internal/selfrepair/selfrepair.go
// Description: File-level issue scanner with backup-before-mutate and
// rollback-on-failure. The import strategy deliberately records telemetry
// instead of rewriting code: detection escalates, humans (or future
// strategies) mutate.
package selfrepair

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

// importExtensions are tried in order when resolving an extensionless
// relative import.
var importExtensions = []string{"", ".ts", ".tsx", ".js", ".jsx", ".json"}

// scanExtensions are the source files the scanner walks.
var scanExtensions = map[string]bool{".ts": true, ".tsx": true, ".js": true, ".jsx": true}

var importRegex = regexp.MustCompile(`(?m)^\s*import\s+(?:[\w{},*\s]+\s+from\s+)?['"]([^'"]+)['"]`)

// SelfRepair scans a source tree for structural issues and applies
// conservative repairs. Every mutation is preceded by a timestamped backup;
// if the backup cannot be created, the mutating step must not run.
type SelfRepair struct {
	logger    *zap.Logger
	backupDir string
}

// New creates a SelfRepair service. An empty backupDir defaults to
// ~/.guardian/backups.
func New(logger *zap.Logger, backupDir string) (*SelfRepair, error) {
	if backupDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory for backups: %w", err)
		}
		backupDir = filepath.Join(home, ".guardian", "backups")
	}
	return &SelfRepair{
		logger:    logger.Named("self-repair"),
		backupDir: backupDir,
	}, nil
}

// DetectIssues statically scans every source file under root. For each
// relative import it tries the path as written, then each known extension
// appended; imports that resolve to nothing become auto-fixable issues.
// Package-style imports are assumed valid.
func (s *SelfRepair) DetectIssues(root string) ([]schemas.RepairIssue, error) {
	var issues []schemas.RepairIssue

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Dependency trees are not ours to scan.
			if d.Name() == "node_modules" || strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !scanExtensions[filepath.Ext(path)] {
			return nil
		}
		fileIssues, err := s.scanFile(path)
		if err != nil {
			s.logger.Warn("Could not scan file", zap.String("file", path), zap.Error(err))
			return nil
		}
		issues = append(issues, fileIssues...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan of %s failed: %w", root, err)
	}

	s.logger.Info("Issue scan finished", zap.String("root", root), zap.Int("issues", len(issues)))
	return issues, nil
}

func (s *SelfRepair) scanFile(path string) ([]schemas.RepairIssue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var issues []schemas.RepairIssue
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		m := importRegex.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		target := m[1]
		if !strings.HasPrefix(target, ".") {
			// Bare specifiers resolve through the package manager.
			continue
		}
		if s.resolveImport(filepath.Dir(path), target) {
			continue
		}
		issues = append(issues, schemas.RepairIssue{
			Type:        schemas.RepairIssueImport,
			File:        path,
			Line:        lineNo,
			Severity:    schemas.SeverityError,
			Description: fmt.Sprintf("import %q does not resolve to a file", target),
			CanAutoFix:  true,
		})
	}
	return issues, scanner.Err()
}

// resolveImport reports whether the relative import resolves, trying the
// path as written and then each known extension. A directory with an index
// file also counts.
func (s *SelfRepair) resolveImport(baseDir, target string) bool {
	base := filepath.Join(baseDir, filepath.FromSlash(target))
	for _, ext := range importExtensions {
		if info, err := os.Stat(base + ext); err == nil && !info.IsDir() {
			return true
		}
	}
	for _, ext := range importExtensions[1:] {
		if info, err := os.Stat(filepath.Join(base, "index"+ext)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// AttemptRepair runs one repair attempt. Issues without CanAutoFix no-op
// with Repaired=false. Otherwise a timestamped backup of the target file is
// created first; if the backup fails, the file is provably untouched. Any
// panic out of the strategy restores the backup byte-for-byte before the
// failure is returned.
func (s *SelfRepair) AttemptRepair(issue schemas.RepairIssue) schemas.RepairResult {
	result := schemas.RepairResult{Issue: issue, AttemptedAt: time.Now()}

	if !issue.CanAutoFix {
		result.Message = "issue is not auto-fixable; flagged for manual repair"
		return result
	}

	backupPath, err := s.backup(issue.File)
	if err != nil {
		// Fail closed: no backup, no mutation.
		s.logger.Error("Backup failed; refusing to touch the file",
			zap.String("file", issue.File), zap.Error(err))
		result.Message = fmt.Sprintf("backup failed, file left untouched: %v", err)
		return result
	}
	result.BackupPath = backupPath

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Repair strategy panicked; restoring backup",
				zap.String("file", issue.File), zap.Any("panic", r))
			if restoreErr := s.Restore(backupPath, issue.File); restoreErr != nil {
				s.logger.Error("Restore after failed repair also failed",
					zap.String("backup", backupPath), zap.Error(restoreErr))
			}
			result.Repaired = false
			result.Message = fmt.Sprintf("repair aborted and rolled back: %v", r)
		}
	}()

	switch issue.Type {
	case schemas.RepairIssueImport:
		// Rewriting imports blindly is how a broken build becomes a broken
		// deploy. The strategy records the finding and escalates; the
		// backup stands ready for whichever fix a human applies.
		result.Repaired = false
		result.Message = "unresolved import detected; escalated without rewriting (backup created)"
	default:
		result.Repaired = false
		result.Message = fmt.Sprintf("no repair strategy for issue type %q", issue.Type)
	}
	return result
}

// backup copies the file into the backup dir under a timestamped name and
// verifies the copy before reporting success.
func (s *SelfRepair) backup(path string) (string, error) {
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create backup dir: %w", err)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open source file: %w", err)
	}
	defer src.Close()

	name := fmt.Sprintf("%s.%s.bak", filepath.Base(path), time.Now().Format("20060102-150405.000"))
	backupPath := filepath.Join(s.backupDir, name)

	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("cannot create backup file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", fmt.Errorf("backup copy failed: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("backup close failed: %w", err)
	}

	s.logger.Debug("Backup created", zap.String("file", path), zap.String("backup", backupPath))
	return backupPath, nil
}

// Restore copies a backup over the target file.
func (s *SelfRepair) Restore(backupPath, target string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("cannot read backup: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("cannot restore target: %w", err)
	}
	return nil
}

// Backups lists the backup files currently held, newest last.
func (s *SelfRepair) Backups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".bak") {
			names = append(names, filepath.Join(s.backupDir, e.Name()))
		}
	}
	return names, nil
}
