package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/justinsb/mxnet-go/pkg/blobs"
	"github.com/justinsb/mxnet-go/pkg/params"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

type storeOptions struct {
	cacheDir  string
	bucket    string
	serverURL string
}

func (o *storeOptions) addFlags(cmd *cobra.Command) {
	o.cacheDir = os.Getenv("MXNET_CACHE_DIR")
	if o.cacheDir == "" {
		o.cacheDir = "~/.cache/mxnet/params"
	}
	o.bucket = os.Getenv("MXNET_PARAMS_BUCKET")
	o.serverURL = os.Getenv("MXNET_MODEL_SERVER")

	cmd.PersistentFlags().StringVar(&o.cacheDir, "cache-dir", o.cacheDir, "local blob cache directory")
	cmd.PersistentFlags().StringVar(&o.bucket, "bucket", o.bucket, "GCS bucket holding parameter blobs (gs://<bucketName>)")
	cmd.PersistentFlags().StringVar(&o.serverURL, "model-server", o.serverURL, "URL of a blob server to fetch from")
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(p, "~/")), nil
}

func (o *storeOptions) gcs() (*blobs.GCSBlobstore, error) {
	if o.bucket == "" {
		return nil, nil
	}
	if !strings.HasPrefix(o.bucket, "gs://") {
		return nil, fmt.Errorf("bucket must be a GCS bucket URL (gs://<bucketName>)")
	}
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(o.bucket, "gs://"), "/")
	return &blobs.GCSBlobstore{Bucket: bucket, Prefix: prefix}, nil
}

// cache builds the local cache, backed by the model server if one is
// configured and otherwise by the bucket.
func (o *storeOptions) cache() (*blobs.Cache, error) {
	dir, err := expandHome(o.cacheDir)
	if err != nil {
		return nil, err
	}
	c := &blobs.Cache{BaseDir: dir}

	if o.serverURL != "" {
		u, err := url.Parse(o.serverURL)
		if err != nil {
			return nil, fmt.Errorf("parsing model server URL %q: %w", o.serverURL, err)
		}
		c.Upstream = &blobs.ModelServer{BlobserverURL: u}
		return c, nil
	}

	store, err := o.gcs()
	if err != nil {
		return nil, err
	}
	if store != nil {
		c.Upstream = store
	}
	return c, nil
}

func newParamsCommand(opt *options) *cobra.Command {
	store := &storeOptions{}
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Inspect, fetch and publish parameter files",
	}
	store.addFlags(cmd)

	cmd.AddCommand(newParamsInspectCommand(opt))
	cmd.AddCommand(newParamsFetchCommand(store))
	cmd.AddCommand(newParamsPushCommand(store))
	cmd.AddCommand(newParamsServeCommand(store))
	return cmd
}

func newParamsInspectCommand(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the arrays in a safetensors or native parameter file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var data [][]string
			if strings.HasSuffix(path, ".safetensors") {
				b, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %q: %w", path, err)
				}
				infos, err := params.InspectSafetensors(b)
				if err != nil {
					return err
				}
				for _, info := range infos {
					data = append(data, []string{info.Name, info.DType, fmt.Sprint(info.Shape)})
				}
			} else {
				rt, err := opt.newRuntime(cmd.Context())
				if err != nil {
					return err
				}
				set, err := params.Load(rt, path)
				if err != nil {
					return err
				}
				defer set.Free()

				for _, name := range set.Names() {
					a, _ := set.Get(name)
					shape, err := a.Shape()
					if err != nil {
						return fmt.Errorf("parameter %q: %w", name, err)
					}
					dtype, err := a.DType()
					if err != nil {
						return fmt.Errorf("parameter %q: %w", name, err)
					}
					data = append(data, []string{name, dtype.String(), shape.String()})
				}
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"NAME", "DTYPE", "SHAPE"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}

func newParamsFetchCommand(store *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch HASH",
		Short: "Download a parameter blob into the local cache and print its path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := store.cache()
			if err != nil {
				return err
			}
			p, err := c.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newParamsPushCommand(store *storeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push FILE",
		Short: "Publish a parameter file to the bucket and print its hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gcs, err := store.gcs()
			if err != nil {
				return err
			}
			if gcs == nil {
				return fmt.Errorf("must specify --bucket or MXNET_PARAMS_BUCKET")
			}
			c, err := store.cache()
			if err != nil {
				return err
			}

			info, err := c.Put(ctx, args[0])
			if err != nil {
				return err
			}
			if err := gcs.Upload(ctx, args[0], info); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.Hash)
			return nil
		},
	}
}

func newParamsServeCommand(store *storeOptions) *cobra.Command {
	listen := ":8080"
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve cached parameter blobs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := store.cache()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(c.BaseDir, 0755); err != nil {
				return fmt.Errorf("creating cache directory %q: %w", c.BaseDir, err)
			}

			klog.FromContext(cmd.Context()).Info("serving parameter blobs", "listen", listen, "cacheDir", c.BaseDir)
			if err := http.ListenAndServe(listen, &blobs.Server{Cache: c}); err != nil {
				return fmt.Errorf("serving on %q: %w", listen, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", listen, "listen address")
	return cmd
}
