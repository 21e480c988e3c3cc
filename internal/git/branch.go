package git

import (
	"sort"
	"strconv"
	"strings"
)

// Branch represents a Git branch.
type Branch struct {
	Name      string
	IsRemote  bool
	IsCurrent bool

	// Upstream tracking ("" when none is configured)
	Upstream     string
	Ahead        int
	Behind       int
	UpstreamGone bool
}

// HasUpstream reports whether the branch tracks a remote branch.
func (b Branch) HasUpstream() bool {
	return b.Upstream != "" && !b.UpstreamGone
}

// NeedsPush reports whether pushing the branch would send anything.
// Branches without an upstream always need a first push.
func (b Branch) NeedsPush() bool {
	return !b.HasUpstream() || b.Ahead > 0
}

const branchFieldSep = "\x00"

// ListBranches returns all local branches of the repository in dir
// ("" = cwd), the current branch first.
func ListBranches(dir string) ([]Branch, error) {
	format := strings.Join([]string{
		"%(HEAD)",
		"%(refname:short)",
		"%(upstream:short)",
		"%(upstream:track,nobracket)",
	}, "%00")
	output, err := runGitInDir(dir, "for-each-ref", "--format="+format, "refs/heads")
	if err != nil {
		return nil, err
	}

	branches := parseBranchList(output)
	sort.SliceStable(branches, func(i, j int) bool {
		if branches[i].IsCurrent != branches[j].IsCurrent {
			return branches[i].IsCurrent
		}
		return branches[i].Name < branches[j].Name
	})
	return branches, nil
}

// parseBranchList parses for-each-ref output produced by ListBranches.
func parseBranchList(output string) []Branch {
	var branches []Branch
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.Split(line, branchFieldSep)
		if len(parts) < 2 {
			continue
		}
		b := Branch{
			IsCurrent: strings.TrimSpace(parts[0]) == "*",
			Name:      parts[1],
		}
		if len(parts) > 2 {
			b.Upstream = parts[2]
		}
		if len(parts) > 3 {
			b.Ahead, b.Behind, b.UpstreamGone = parseTrack(parts[3])
		}
		branches = append(branches, b)
	}
	return branches
}

// parseTrack parses "%(upstream:track,nobracket)", e.g. "ahead 2, behind 1"
// or "gone".
func parseTrack(track string) (ahead, behind int, gone bool) {
	track = strings.TrimSpace(track)
	if track == "gone" {
		return 0, 0, true
	}
	for _, part := range strings.Split(track, ",") {
		fields := strings.Fields(part)
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		switch fields[0] {
		case "ahead":
			ahead = n
		case "behind":
			behind = n
		}
	}
	return ahead, behind, false
}

// ListRemoteBranches returns all remote-tracking branches.
func ListRemoteBranches(dir string) ([]Branch, error) {
	output, err := runGitInDir(dir, "branch", "-r", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}

	var branches []Branch
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" || strings.HasSuffix(line, "/HEAD") {
			continue
		}
		branches = append(branches, Branch{Name: line, IsRemote: true})
	}
	return branches, nil
}
