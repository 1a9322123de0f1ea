// Package preffs provides a read-only virtual filesystem whose files are
// assembled from fragments recorded in a reference manifest.
//
// Each manifest row maps a logical key to either inline bytes or a byte range
// inside an object on some backend (local files, HTTP servers, S3, OCI
// registries). Rows sharing a key are concatenated in table order to form
// the file. Directories are never stored; they are derived from the sorted
// key table.
//
// # Quick Start
//
// Open a manifest and read files:
//
//	fsys, err := preffs.Open(ctx, "refs.yaml")
//	if err != nil {
//	    return err
//	}
//	data, err := fsys.Cat(ctx, "a/b")
//	part, err := fsys.ReadRange(ctx, "a/b", preffs.RangeBetween(2, 6))
//	entries, err := fsys.ListDirectory("a")
//
// Remote fragments of one file are fetched in parallel when the backend
// allows it, and always joined in table order.
//
// # Backends
//
// file and http(s) are available by default. Other schemes are registered
// with [WithBackend] or [WithBackendFactory]:
//
//	fsys, err := preffs.Open(ctx, "refs.cbor",
//	    preffs.WithBackendFactory("s3", s3.Factory(s3.Config{Region: "eu-central-1"})),
//	    preffs.WithBackendFactory("oci", oci.Factory(oci.WithDockerConfig())),
//	)
//
// # io/fs
//
// [FS.Reader] adapts the filesystem to fs.FS, fs.StatFS, fs.ReadFileFS and
// fs.ReadDirFS for use with the standard library:
//
//	r := fsys.Reader(preffs.WithContext(ctx))
//	err := fs.WalkDir(r, ".", walkFn)
//
// # Configuration
//
// The config package loads logging, cache, fetch and backend settings from a
// file, PREFFS_ environment variables and flags, and turns them into
// options:
//
//	cfg, err := config.Load("", nil)
//	opts, err := config.Options(cfg, config.NewLogger(cfg.Logging, os.Stderr))
//	fsys, err := preffs.Open(ctx, "refs.yaml", opts...)
package preffs
