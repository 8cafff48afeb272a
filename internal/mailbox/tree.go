package mailbox

import (
	"strings"

	"github.com/emersion/go-imap/v2"
)

// TreeNode is one mailbox in the reconstructed folder hierarchy.
// Children keep the order in which the server listed them.
type TreeNode struct {
	Name     string
	Delim    string
	Flags    []string
	Children []*TreeNode
}

// BuildTree reconstructs the mailbox hierarchy from LIST responses.
// Paths are split on each entry's own delimiter; intermediate nodes
// the server never listed explicitly are synthesized with empty flags.
// Sibling order follows the server's listing order.
func BuildTree(list []*imap.ListData) []*TreeNode {
	var roots []*TreeNode
	index := map[string]*TreeNode{}

	for _, data := range list {
		delim := ""
		if data.Delim != 0 {
			delim = string(data.Delim)
		}

		segments := []string{data.Mailbox}
		if delim != "" {
			segments = strings.Split(data.Mailbox, delim)
		}

		path := ""
		var parent *TreeNode
		for i, name := range segments {
			if path == "" {
				path = name
			} else {
				path += delim + name
			}

			node, ok := index[path]
			if !ok {
				node = &TreeNode{Name: name, Delim: delim}
				index[path] = node
				if parent == nil {
					roots = append(roots, node)
				} else {
					parent.Children = append(parent.Children, node)
				}
			}

			if i == len(segments)-1 {
				node.Delim = delim
				for _, attr := range data.Attrs {
					node.Flags = append(node.Flags, string(attr))
				}
			}
			parent = node
		}
	}

	return roots
}

// Flatten walks the tree depth-first, emitting each node immediately
// before its children. A node's path is its parent's path joined with
// its name by the node's delimiter; roots use their bare name.
func Flatten(nodes []*TreeNode, prefix string) []Folder {
	var out []Folder
	for _, node := range nodes {
		path := node.Name
		if prefix != "" {
			path = prefix + node.Delim + node.Name
		}

		flags := node.Flags
		if flags == nil {
			flags = []string{}
		}

		out = append(out, Folder{
			Name:        node.Name,
			Path:        path,
			Delimiter:   node.Delim,
			Flags:       flags,
			HasChildren: hasChildren(node),
		})
		out = append(out, Flatten(node.Children, path)...)
	}
	return out
}

func hasChildren(node *TreeNode) bool {
	if len(node.Children) > 0 {
		return true
	}
	for _, flag := range node.Flags {
		if flag == string(imap.MailboxAttrHasChildren) {
			return true
		}
	}
	return false
}
