// Package forge identifies a remote repository snapshot on a code forge and
// knows the URL conventions each supported forge uses for LFS batch requests
// and source archives.
package forge

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Kind selects the URL conventions of a forge.
type Kind int

const (
	// GitHub uses github.com style archive URLs.
	GitHub Kind = iota
	// GitLab uses the GitLab v4 project archive API.
	GitLab
)

// ErrUnknownKind is returned when a forge kind name is not recognized.
var ErrUnknownKind = errors.New("forge: unknown kind")

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case GitHub, GitLab:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses "github" or "gitlab" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "github":
		return GitHub, nil
	case "gitlab":
		return GitLab, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Tree identifies exactly one repository revision on a forge.
//
// A Tree is an immutable value. It is passed explicitly to every call that
// needs to reach the forge; nothing holds a reference back to it.
type Tree struct {
	Hostname  string `toml:"hostname"`
	Namespace string `toml:"namespace"`
	Name      string `toml:"name"`
	Revision  string `toml:"revision"`
	Kind      Kind   `toml:"kind"`

	// Scheme is the URL scheme used to reach Hostname. Empty means https.
	Scheme string `toml:"scheme"`
}

// DefaultTree returns the coordinate of the public mod index repository.
func DefaultTree() Tree {
	return Tree{
		Hostname:  "gitlab.com",
		Namespace: "balatro-mod-index",
		Name:      "repo",
		Revision:  "main",
		Kind:      GitLab,
	}
}

// Validate reports whether every coordinate field is set.
func (t Tree) Validate() error {
	switch {
	case t.Hostname == "":
		return errors.New("forge: hostname is required")
	case t.Namespace == "":
		return errors.New("forge: namespace is required")
	case t.Name == "":
		return errors.New("forge: name is required")
	case t.Revision == "":
		return errors.New("forge: revision is required")
	}
	if t.Kind != GitHub && t.Kind != GitLab {
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(t.Kind))
	}
	if t.Scheme != "" && t.Scheme != "http" && t.Scheme != "https" {
		return fmt.Errorf("forge: unsupported scheme %q", t.Scheme)
	}
	return nil
}

func (t Tree) scheme() string {
	if t.Scheme == "" {
		return "https"
	}
	return t.Scheme
}

// BatchURL returns the Git LFS batch API endpoint of the repository.
func (t Tree) BatchURL() string {
	return fmt.Sprintf("%s://%s/%s/%s.git/info/lfs/objects/batch",
		t.scheme(), t.Hostname, t.Namespace, t.Name)
}

// ArchiveURL returns the URL of a zip archive of the tree's revision.
// LFS objects are left as pointers in the archive.
func (t Tree) ArchiveURL() string {
	if t.Kind == GitHub {
		return fmt.Sprintf("%s://%s/%s/%s/archive/refs/heads/%s.zip",
			t.scheme(), t.Hostname, t.Namespace, t.Name, t.Revision)
	}
	return fmt.Sprintf("%s://%s/api/v4/projects/%s%%2F%s/repository/archive.zip?include_lfs_blobs=false&sha=%s",
		t.scheme(), t.Hostname, t.Namespace, t.Name, url.QueryEscape(t.Revision))
}

// ArchivePrefix returns the name the forge gives the archive's top-level
// directory. Slashes in the revision become dashes. GitLab appends the
// commit hash, so callers match by prefix.
func (t Tree) ArchivePrefix() string {
	return t.Name + "-" + strings.ReplaceAll(t.Revision, "/", "-")
}

// String returns a human readable coordinate.
func (t Tree) String() string {
	return fmt.Sprintf("%s:%s/%s/%s@%s", t.Kind, t.Hostname, t.Namespace, t.Name, t.Revision)
}
