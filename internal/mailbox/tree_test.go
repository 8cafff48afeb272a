package mailbox

import (
	"testing"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTreeFlatten(t *testing.T) {
	list := []*imap.ListData{
		{Mailbox: "INBOX", Delim: '/'},
		{Mailbox: "Archive", Delim: '/', Attrs: []imap.MailboxAttr{imap.MailboxAttrHasChildren}},
		{Mailbox: "Archive/2023", Delim: '/'},
		{Mailbox: "Archive/2024", Delim: '/'},
		{Mailbox: "Sent", Delim: '/'},
	}

	folders := Flatten(BuildTree(list), "")
	require.Len(t, folders, 5)

	paths := make([]string, 0, len(folders))
	for _, f := range folders {
		paths = append(paths, f.Path)
	}
	// Depth-first pre-order: a node right before its children, siblings
	// in server order.
	assert.Equal(t, []string{"INBOX", "Archive", "Archive/2023", "Archive/2024", "Sent"}, paths)

	assert.Equal(t, "2023", folders[2].Name)
	assert.Equal(t, "/", folders[2].Delimiter)
	assert.True(t, folders[1].HasChildren)
	assert.False(t, folders[0].HasChildren)
}

func TestBuildTreeSynthesizesMissingParents(t *testing.T) {
	// Some servers list only the leaves.
	list := []*imap.ListData{
		{Mailbox: "Work/Projects/Alpha", Delim: '/'},
		{Mailbox: "Work/Projects/Beta", Delim: '/'},
	}

	folders := Flatten(BuildTree(list), "")
	require.Len(t, folders, 4)

	assert.Equal(t, "Work", folders[0].Path)
	assert.Equal(t, "Work/Projects", folders[1].Path)
	assert.Equal(t, "Work/Projects/Alpha", folders[2].Path)
	assert.Equal(t, "Work/Projects/Beta", folders[3].Path)

	// Synthesized ancestors still report children.
	assert.True(t, folders[0].HasChildren)
	assert.True(t, folders[1].HasChildren)
	assert.False(t, folders[2].HasChildren)
}

func TestFlattenPathConstruction(t *testing.T) {
	tree := []*TreeNode{
		{
			Name:  "A",
			Delim: ".",
			Children: []*TreeNode{
				{Name: "B", Delim: ".", Children: []*TreeNode{
					{Name: "C", Delim: "."},
				}},
			},
		},
	}

	folders := Flatten(tree, "")
	require.Len(t, folders, 3)

	// Root path is the bare name; every other path is the parent's
	// path joined by the node's delimiter.
	assert.Equal(t, "A", folders[0].Path)
	assert.Equal(t, "A.B", folders[1].Path)
	assert.Equal(t, "A.B.C", folders[2].Path)
	for _, f := range folders {
		assert.NotNil(t, f.Flags)
	}
}

func TestFlattenEmptyTree(t *testing.T) {
	assert.Empty(t, Flatten(nil, ""))
	assert.Empty(t, Flatten(BuildTree(nil), ""))
}

func TestBuildTreeNoDelimiter(t *testing.T) {
	// NIL delimiter means a flat namespace.
	list := []*imap.ListData{
		{Mailbox: "INBOX", Delim: 0},
		{Mailbox: "Notes", Delim: 0},
	}

	folders := Flatten(BuildTree(list), "")
	require.Len(t, folders, 2)
	assert.Equal(t, "INBOX", folders[0].Path)
	assert.Equal(t, "", folders[0].Delimiter)
	assert.Equal(t, "Notes", folders[1].Path)
}
