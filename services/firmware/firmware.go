// Package firmware tracks the newest firmware offered by the server.
package firmware

import (
	"strconv"
	"strings"

	"alertmap-go/types"
)

// Version is major.minor[.patch][-bN]. Beta 0 is a release.
type Version struct {
	Major, Minor, Patch int
	Beta                int
}

func (v Version) IsZero() bool { return v == Version{} }

func (v Version) String() string {
	s := strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
	if v.Patch > 0 {
		s += "." + strconv.Itoa(v.Patch)
	}
	if v.Beta > 0 {
		s += "-b" + strconv.Itoa(v.Beta)
	}
	return s
}

// Newer reports whether v is newer than o. A release is newer than a beta
// of the same number.
func (v Version) Newer(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor > o.Minor
	}
	if v.Patch != o.Patch {
		return v.Patch > o.Patch
	}
	switch {
	case v.Beta == o.Beta:
		return false
	case v.Beta == 0:
		return true
	case o.Beta == 0:
		return false
	}
	return v.Beta > o.Beta
}

// Parse reads a version or a bin file name such as "4.2-b95.bin".
func Parse(s string) (Version, bool) {
	s = strings.TrimSuffix(s, ".bin")
	var v Version
	if i := strings.Index(s, "-b"); i >= 0 {
		b, err := strconv.Atoi(s[i+2:])
		if err != nil || b <= 0 {
			return Version{}, false
		}
		v.Beta = b
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Version{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, false
		}
		nums[i] = n
	}
	v.Major, v.Minor, v.Patch = nums[0], nums[1], nums[2]
	return v, true
}

// Channel selects which bin list is considered.
type Channel int

const (
	Stable Channel = 0
	Beta   Channel = 1
)

// Notice keeps both bin lists and the latest version of the chosen channel.
type Notice struct {
	current Version
	channel Channel
	stable  []string
	test    []string
	latest  Version
}

func NewNotice(current Version) *Notice {
	return &Notice{current: current, latest: current}
}

func (n *Notice) Current() Version { return n.current }
func (n *Notice) Latest() Version  { return n.latest }

// UpdateAvailable reports whether the latest offered version is newer than
// the running one.
func (n *Notice) UpdateAvailable() bool { return n.latest.Newer(n.current) }

// Apply stores a bin list from the server and recomputes the latest version.
func (n *Notice) Apply(b types.Bins) {
	if b.Test {
		n.test = append(n.test[:0], b.Bins...)
	} else {
		n.stable = append(n.stable[:0], b.Bins...)
	}
	n.recompute()
}

func (n *Notice) SetChannel(c Channel) {
	n.channel = c
	n.recompute()
}

func (n *Notice) recompute() {
	list := n.stable
	if n.channel == Beta {
		list = n.test
	}
	best := n.current
	for _, name := range list {
		if strings.HasPrefix(name, "latest") {
			continue
		}
		v, ok := Parse(name)
		if ok && v.Newer(best) {
			best = v
		}
	}
	n.latest = best
}
