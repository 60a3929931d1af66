package vcs

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/panbanda/unused-cleaner/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuthor = Author{Name: "Test", Email: "test@example.com"}

// initRepo creates a repository on branch main with one commit containing
// the given files.
func initRepo(t *testing.T, files map[string]string) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)

	testutil.CreateFileTree(t, dir, files)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir, repo
}

func TestOpen(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{"package.json": "{}", "src/a.js": ""})

	_, err := Open(dir)
	require.NoError(t, err)
	_, err = Open(filepath.Join(dir, "src"))
	require.NoError(t, err, "parent .git is detected")

	_, err = Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}

func TestHasChanges(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{"src/a.js": "a"})

	r, err := Open(dir)
	require.NoError(t, err)

	changed, err := r.HasChanges()
	require.NoError(t, err)
	assert.False(t, changed)

	testutil.WriteFile(t, filepath.Join(dir, "src/b.js"), "b")
	changed, err = r.HasChanges()
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestStageAllAndCommit_Deletions(t *testing.T) {
	dir, repo := initRepo(t, map[string]string{
		"src/index.js":  "import 'lodash'",
		"src/unused.js": "",
	})
	require.NoError(t, removeFile(dir, "src/unused.js"))

	r, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, r.StageAll())

	hash, err := r.Commit("chore: remove unused files and dependencies", testAuthor)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	assert.Equal(t, "chore: remove unused files and dependencies", commit.Message)
	assert.Equal(t, "Test", commit.Author.Name)

	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("src/unused.js")
	assert.Error(t, err, "deleted file is gone from the committed tree")
	_, err = tree.File("src/index.js")
	assert.NoError(t, err)

	changed, err := r.HasChanges()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCommit_NothingStaged(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{"a.js": ""})

	r, err := Open(dir)
	require.NoError(t, err)

	_, err = r.Commit("empty", testAuthor)
	assert.ErrorIs(t, err, ErrNothingToCommit)
}

func TestCurrentBranch(t *testing.T) {
	dir, repo := initRepo(t, map[string]string{"a.js": ""})

	r, err := Open(dir)
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	head, err := repo.Head()
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: head.Hash()}))

	branch, err = r.CurrentBranch()
	require.NoError(t, err)
	assert.Empty(t, branch)
}

func TestPush_BareRemote(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir, repo := initRepo(t, map[string]string{"src/a.js": "", "src/b.js": ""})
	remoteDir := t.TempDir()
	bare, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{remoteDir}})
	require.NoError(t, err)

	require.NoError(t, removeFile(dir, "src/b.js"))
	r, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, r.StageAll())
	hash, err := r.Commit("cleanup", testAuthor)
	require.NoError(t, err)

	branch, err := r.Push(context.Background(), "origin", "main")
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	ref, err := bare.Reference(plumbing.NewBranchReferenceName("main"), true)
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash().String())

	// A second push with nothing new is not an error.
	_, err = r.Push(context.Background(), "origin", "main")
	assert.NoError(t, err)
}

func TestPush_UnknownRemote(t *testing.T) {
	dir, _ := initRepo(t, map[string]string{"a.js": ""})

	r, err := Open(dir)
	require.NoError(t, err)

	_, err = r.Push(context.Background(), "nope", "main")
	assert.Error(t, err)
}
