package filesystem

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/user"
	"strconv"

	"github.com/colinmarc/hdfs/v2"
	"github.com/colinmarc/hdfs/v2/hadoopconf"
)

const (
	// DefaultHost makes the namenode come from the Hadoop configuration files.
	DefaultHost = "default"

	defaultNamenodePort = 8020
)

type HDFSOptions struct {
	Host string
	Port int
	User string
}

// HDFS is a [Backend] talking to a Hadoop namenode through the native
// protocol client.
type HDFS struct {
	client    *hdfs.Client
	namenodes []string
}

type hadoopConfLoader func() (hadoopconf.HadoopConf, error)

func NewHDFS(opts HDFSOptions) (*HDFS, error) {
	namenodes, conf, err := resolveNamenodes(opts, hadoopconf.LoadFromEnvironment)
	if err != nil {
		return nil, fmt.Errorf("(fs-hdfs) %w", err)
	}

	clientOpts := hdfs.ClientOptionsFromConf(conf)
	clientOpts.Addresses = namenodes
	switch {
	case opts.User != "":
		clientOpts.User = opts.User
	case clientOpts.User == "" && clientOpts.KerberosClient == nil:
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("(fs-hdfs) failed to determine user: %w", err)
		}
		clientOpts.User = u.Username
	}

	slog.Info("Connecting to HDFS",
		"namenodes", namenodes,
		"user", clientOpts.User,
	)

	client, err := hdfs.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("(fs-hdfs) failed to connect: %w", err)
	}

	return &HDFS{
		client:    client,
		namenodes: namenodes,
	}, nil
}

// resolveNamenodes works out the namenode addresses. The host "default"
// defers to the Hadoop configuration found through HADOOP_CONF_DIR or
// HADOOP_HOME, a port of 0 picks the port from there as well.
func resolveNamenodes(opts HDFSOptions, load hadoopConfLoader) ([]string, hadoopconf.HadoopConf, error) {
	conf, err := load()
	if err != nil {
		slog.Warn("Failed to load Hadoop configuration (continuing without)",
			"err", err,
		)

		conf = hadoopconf.HadoopConf{}
	}

	if opts.Host == "" || opts.Host == DefaultHost {
		namenodes := conf.Namenodes()
		if len(namenodes) == 0 {
			return nil, nil, ErrNoNamenode
		}

		if opts.Port > 0 {
			for i, nn := range namenodes {
				host, _, err := net.SplitHostPort(nn)
				if err != nil {
					host = nn
				}
				namenodes[i] = net.JoinHostPort(host, strconv.Itoa(opts.Port))
			}
		}

		return namenodes, conf, nil
	}

	port := opts.Port
	if port <= 0 {
		port = defaultNamenodePort
	}

	return []string{net.JoinHostPort(opts.Host, strconv.Itoa(port))}, conf, nil
}

func (h *HDFS) Name() string {
	return fmt.Sprintf("hdfs:%v", h.namenodes)
}

func (h *HDFS) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return h.client.Stat(name)
}

func (h *HDFS) ReadDir(ctx context.Context, name string) ([]os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return h.client.ReadDir(name)
}

func (h *HDFS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := h.client.Open(name)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (h *HDFS) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, err := h.client.Create(name)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func (h *HDFS) MkdirAll(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return h.client.MkdirAll(name, dirPerms)
}

func (h *HDFS) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return h.client.Remove(name)
}

func (h *HDFS) RemoveAll(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return h.client.RemoveAll(name)
}

func (h *HDFS) Rename(ctx context.Context, oldpath, newpath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return h.client.Rename(oldpath, newpath)
}

func (h *HDFS) Usage(ctx context.Context) (DiskStats, error) {
	if err := ctx.Err(); err != nil {
		return DiskStats{}, err
	}

	info, err := h.client.StatFs()
	if err != nil {
		return DiskStats{}, fmt.Errorf("(fs-hdfs) failed to statfs: %w", err)
	}

	return DiskStats{
		TotalSize: info.Capacity,
		FreeSpace: info.Remaining,
	}, nil
}

func (h *HDFS) Close() error {
	return h.client.Close()
}
