// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"os/exec"
)

// gitCommitHistory implements authoring.CommitHistory over the real `git`
// binary, the collaborator the Suggestion Engine is built against but
// does not itself depend on.
type gitCommitHistory struct {
	root string
}

// Shortlog runs `git shortlog -sne --no-merges HEAD -- <pathspec>` rooted
// at the workspace directory and returns its raw stdout, exactly the
// aggregate-commit-count-per-author report SuggestOwners parses.
func (g gitCommitHistory) Shortlog(ctx context.Context, pathspec string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "shortlog", "-sne", "--no-merges", "HEAD", "--", pathspec)
	cmd.Dir = g.root
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
