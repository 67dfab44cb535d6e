package registry

import (
	"context"

	"ompkg/pkg/pkgerr"
	"ompkg/pkg/version"
)

// Resolve returns the release of repo whose tag is the newest version
// satisfying constraint. Drafts are skipped and tags that do not parse as
// versions are not candidates. When the constraint accepts anything and no
// tag parses at all, the most recently published release is used.
func (c *Client) Resolve(ctx context.Context, repo string, constraint *version.Constraint) (*Release, error) {
	releases, err := c.ListReleases(ctx, repo)
	if err != nil {
		return nil, err
	}
	return c.selectRelease(repo, releases, constraint)
}

func (c *Client) selectRelease(repo string, releases []Release, constraint *version.Constraint) (*Release, error) {
	var (
		versions []*version.Version
		byTag    = make(map[*version.Version]int)
		newest   = -1
	)

	for i, r := range releases {
		if r.Draft {
			continue
		}
		if newest < 0 || r.PublishedAt.After(releases[newest].PublishedAt) {
			newest = i
		}
		v, err := version.Parse(r.Tag)
		if err != nil {
			c.logger.Debug("skipping release with unparseable tag", "repo", repo, "tag", r.Tag)
			continue
		}
		versions = append(versions, v)
		byTag[v] = i
	}

	if best := constraint.LatestMatching(versions); best != nil {
		rel := releases[byTag[best]]
		c.logger.Debug("resolved release", "repo", repo, "constraint", constraint.String(), "tag", rel.Tag)
		return &rel, nil
	}

	if len(versions) == 0 && constraint.IsAny() && newest >= 0 {
		rel := releases[newest]
		c.logger.Warn("no release tag is a version, using the latest release", "repo", repo, "tag", rel.Tag)
		return &rel, nil
	}

	if len(releases) == 0 {
		return nil, pkgerr.NotFoundf("%s has no releases", repo)
	}
	return nil, pkgerr.NotFoundf("no release of %s matches %s", repo, constraint.String())
}
