package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"ompkg/pkg/pkgerr"
)

// progressReader reports bytes read through a ProgressFunc.
type progressReader struct {
	r     io.Reader
	name  string
	done  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.done += int64(n)
		p.fn(p.name, p.done, p.total)
	}
	return n, err
}

// Download streams url to dest, reporting progress under name. A non-2xx
// response or a failed write fails the download and removes the partial file.
func (c *Client) Download(ctx context.Context, name, url, dest string, size int64) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Only the wait for headers is bounded; the body may take as long as
	// the asset needs.
	headerTimer := time.AfterFunc(c.timeout, cancel)
	resp, err := c.doRequest(ctx, url)
	if !headerTimer.Stop() {
		if err == nil {
			_ = resp.Body.Close()
		}
		return pkgerr.Registryf("downloading %s: no response within %s", redactURL(url), c.timeout)
	}
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerr.Registryf("downloading %s: HTTP %d", redactURL(url), resp.StatusCode)
	}

	total := size
	if total <= 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	var body io.Reader = resp.Body
	if c.progress != nil {
		c.progress(name, 0, total)
		body = &progressReader{r: resp.Body, name: name, total: total, fn: c.progress}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return pkgerr.IO("create directory", filepath.Dir(dest), err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return pkgerr.IO("create", dest, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = pkgerr.IO("close", dest, closeErr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	if _, err := io.Copy(out, body); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return pkgerr.IO("write", dest, err)
		}
		return pkgerr.Registry("downloading "+redactURL(url), err)
	}
	return nil
}

// FetchAndClassify downloads every asset of release into destDir, extracts
// archives and classifies the results. Downloads run concurrently; each
// asset writes to its own path and each archive extracts into its own
// subdirectory. Buckets are merged in asset order. When no asset yields a
// file, include files are pulled from the repository tree at the release tag.
func (c *Client) FetchAndClassify(ctx context.Context, repo string, release *Release, destDir string) (*Files, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, pkgerr.IO("create directory", destDir, err)
	}

	results := make([]*Files, len(release.Assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, asset := range release.Assets {
		g.Go(func() error {
			files, err := c.fetchAsset(gctx, asset, destDir)
			if err != nil {
				return fmt.Errorf("asset %s: %w", asset.Name, err)
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := &Files{}
	for _, r := range results {
		files.Merge(r)
	}

	if files.Empty() {
		c.logger.Info("release has no usable assets, fetching includes from source", "repo", repo, "tag", release.Tag)
		includes, err := c.fetchSourceIncludes(ctx, repo, release.Tag, filepath.Join(destDir, "source"))
		if err != nil {
			return nil, err
		}
		files.Includes = append(files.Includes, includes...)
	}

	c.logger.Debug("classified package files", "repo", repo, "tag", release.Tag,
		"includes", len(files.Includes), "root", len(files.RootBinaries),
		"components", len(files.ComponentBinaries), "plugins", len(files.PluginBinaries),
		"other", len(files.Binaries))
	return files, nil
}

// fetchAsset downloads one asset and classifies it.
func (c *Client) fetchAsset(ctx context.Context, asset Asset, destDir string) (*Files, error) {
	name := filepath.Base(asset.Name)
	dest := filepath.Join(destDir, name)
	if err := c.Download(ctx, asset.Name, asset.DownloadURL, dest, asset.Size); err != nil {
		return nil, err
	}

	files := &Files{}
	if IsArchive(name) {
		extracted, err := Extract(dest, extractDir(destDir, name))
		if err != nil {
			return nil, err
		}
		files.Merge(extracted)
		c.logger.Debug("extracted archive", "asset", name, "files", extracted.Count())
		return files, nil
	}

	files.Add(Classify(name, ""), dest)
	return files, nil
}

// extractDir is the directory an archive asset is unpacked into. It is
// derived from the full asset name so pkg.zip and pkg.tar.gz never share one.
func extractDir(destDir, name string) string {
	return filepath.Join(destDir, name+".d")
}

// fetchSourceIncludes downloads the .inc files at the top of the repository
// tree at ref into dir.
func (c *Client) fetchSourceIncludes(ctx context.Context, repo, ref, dir string) ([]string, error) {
	items, err := c.ListContents(ctx, repo, ref)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, item := range items {
		if item.Type != "file" || item.DownloadURL == "" || Classify(item.Name, "") != KindInclude {
			continue
		}
		dest := filepath.Join(dir, filepath.Base(item.Name))
		if err := c.Download(ctx, item.Name, item.DownloadURL, dest, item.Size); err != nil {
			return nil, err
		}
		paths = append(paths, dest)
	}
	return paths, nil
}
