// File: internal/selfrepair/selfrepair_test.go
package selfrepair

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

func newTestRepair(t *testing.T) *SelfRepair {
	t.Helper()
	s, err := New(zap.NewNop(), filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)
	return s
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectIssuesResolvesImportsWithExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "components", "Carrito.tsx"), "export const Carrito = () => null\n")
	writeFile(t, filepath.Join(root, "pages", "checkout.tsx"),
		"import { Carrito } from '../components/Carrito'\nimport { precios } from './precios'\n")

	s := newTestRepair(t)
	issues, err := s.DetectIssues(root)
	require.NoError(t, err)

	// Carrito resolves via .tsx; precios resolves to nothing.
	require.Len(t, issues, 1)
	assert.Equal(t, schemas.RepairIssueImport, issues[0].Type)
	assert.Equal(t, 2, issues[0].Line)
	assert.Contains(t, issues[0].Description, "./precios")
	assert.True(t, issues[0].CanAutoFix)
}

func TestDetectIssuesAcceptsDirectoryIndexImports(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "hooks", "index.ts"), "export const useCart = () => null\n")
	writeFile(t, filepath.Join(root, "app.ts"), "import { useCart } from './hooks'\n")

	s := newTestRepair(t)
	issues, err := s.DetectIssues(root)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestDetectIssuesIgnoresBareSpecifiersAndNodeModules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app.ts"), "import axios from 'axios'\n")
	writeFile(t, filepath.Join(root, "node_modules", "broken", "index.js"),
		"import missing from './does-not-exist'\n")

	s := newTestRepair(t)
	issues, err := s.DetectIssues(root)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestAttemptRepairCreatesBackupBeforeAnyAction(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "app.ts")
	writeFile(t, target, "import x from './missing'\n")

	s := newTestRepair(t)
	result := s.AttemptRepair(schemas.RepairIssue{
		Type:       schemas.RepairIssueImport,
		File:       target,
		CanAutoFix: true,
	})

	require.NotEmpty(t, result.BackupPath)
	backup, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	original, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, original, backup, "backup must be byte-for-byte identical")
	assert.False(t, result.Repaired)
}

func TestAttemptRepairFailsClosedWhenBackupImpossible(t *testing.T) {
	s := newTestRepair(t)
	result := s.AttemptRepair(schemas.RepairIssue{
		Type:       schemas.RepairIssueImport,
		File:       filepath.Join(t.TempDir(), "nonexistent.ts"),
		CanAutoFix: true,
	})

	assert.False(t, result.Repaired)
	assert.Empty(t, result.BackupPath)
	assert.Contains(t, result.Message, "backup failed")
}

func TestAttemptRepairSkipsNonAutoFixableIssues(t *testing.T) {
	s := newTestRepair(t)
	result := s.AttemptRepair(schemas.RepairIssue{
		Type:       schemas.RepairIssueFunction,
		File:       "whatever.ts",
		CanAutoFix: false,
	})

	assert.False(t, result.Repaired)
	assert.Empty(t, result.BackupPath)

	backups, err := s.Backups()
	require.NoError(t, err)
	assert.Empty(t, backups, "no backup may be created for a skipped issue")
}

func TestRestoreBringsFileBackExactly(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "app.ts")
	writeFile(t, target, "original content\n")

	s := newTestRepair(t)
	backupPath, err := s.backup(target)
	require.NoError(t, err)

	writeFile(t, target, "corrupted by a bad repair\n")
	require.NoError(t, s.Restore(backupPath, target))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original content\n", string(data))
}
