package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"page-server/internal/logging"
	"page-server/internal/metrics"
)

// AssetsDir is the directory inside the client build that holds fingerprinted files.
const AssetsDir = "assets"

const hashLength = 8

// BuildOptions describes where Build reads and writes.
type BuildOptions struct {
	// SourceDir holds files to fingerprint. It must exist.
	SourceDir string
	// PublicDir holds files copied verbatim to the build root. Optional.
	PublicDir string
	// OutDir is the client build root served by the Responder.
	OutDir string
	// ManifestPath is where the manifest is written. It should live outside OutDir.
	ManifestPath string
}

// Build fingerprints the asset sources, copies public files and writes the
// manifest. Previous fingerprinted output is removed first so stale hashes do
// not accumulate.
func Build(opts BuildOptions) (*Manifest, error) {
	start := time.Now()
	m, err := build(opts)
	metrics.AssetBuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AssetBuildsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.AssetBuildsTotal.WithLabelValues("success").Inc()
	logging.Debug("Built %d assets (version %s) in %v", len(m.Entries), m.Version, time.Since(start))
	return m, nil
}

func build(opts BuildOptions) (*Manifest, error) {
	if opts.OutDir == "" || opts.ManifestPath == "" {
		return nil, errors.New("build output directory and manifest path are required")
	}

	info, err := os.Stat(opts.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("asset source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset source %s is not a directory", opts.SourceDir)
	}

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if opts.PublicDir != "" {
		if err := copyPublic(opts.PublicDir, opts.OutDir); err != nil {
			return nil, err
		}
	}

	assetsOut := filepath.Join(opts.OutDir, AssetsDir)
	if err := os.RemoveAll(assetsOut); err != nil {
		return nil, fmt.Errorf("failed to clean %s: %w", assetsOut, err)
	}

	entries := make(map[string]string)
	err = filepath.WalkDir(opts.SourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(opts.SourceDir, p)
		if err != nil {
			return err
		}
		logical := filepath.ToSlash(rel)

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", logical, err)
		}

		target := path.Join(AssetsDir, fingerprint(logical, data))
		if err := writeFile(filepath.Join(opts.OutDir, filepath.FromSlash(target)), data); err != nil {
			return err
		}
		entries[logical] = target
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint assets: %w", err)
	}

	m := &Manifest{Version: manifestVersion(entries), Entries: entries}
	if err := m.Write(opts.ManifestPath); err != nil {
		return nil, err
	}
	return m, nil
}

// fingerprint turns "styles/app.css" into "styles/app-<hash>.css".
func fingerprint(logical string, data []byte) string {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])[:hashLength]

	ext := path.Ext(logical)
	base := strings.TrimSuffix(logical, ext)
	return base + "-" + hash + ext
}

func manifestVersion(entries map[string]string) string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s=%s\n", name, entries[name])
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLength]
}

func copyPublic(publicDir, outDir string) error {
	info, err := os.Stat(publicDir)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debug("Public directory %s does not exist, skipping", publicDir)
		return nil
	}
	if err != nil {
		return fmt.Errorf("public directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("public path %s is not a directory", publicDir)
	}

	return filepath.WalkDir(publicDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(publicDir, p)
		if err != nil {
			return err
		}
		if rel != "." && isHidden(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(filepath.ToSlash(rel), AssetsDir+"/") {
			return fmt.Errorf("public file %s collides with the fingerprinted assets directory", rel)
		}
		return copyFile(p, filepath.Join(outDir, rel))
	})
}

// isHidden reports whether a public path would be refused by the responder.
func isHidden(rel string) bool {
	for i, seg := range strings.Split(rel, "/") {
		if hiddenSegment(i, seg) {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

func writeFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return nil
}
