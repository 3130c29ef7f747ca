package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkrasnow/memtree"
	"github.com/dkrasnow/memtree/config"
	"github.com/dkrasnow/memtree/filesystem"
	"github.com/dkrasnow/memtree/internal/util"
	"github.com/dkrasnow/memtree/requests"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Seed a filesystem instance from a definitions file and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose := viper.GetInt(verboseFlag)
		if verbose < 1 {
			verbose = 1
		}
		if verbose > 5 {
			verbose = 5
		}
		logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
		util.InitializeLogger(logLvls[verbose-1])
		logger := util.GetLogger("main")

		cfg := config.NewDefaultConfig()
		if cfgPath := viper.GetString(configFlag); cfgPath != "" {
			override, err := config.LoadConfigOverrideFile(cfgPath)
			if err != nil {
				logger.Fatal().Err(err).Str("config", cfgPath).Msg("Failed to load config file")
			}
			cfg.Merge(override)
		}

		fs := filesystem.NewFS(cfg)
		defer fs.Teardown()

		if nodesDef := viper.GetString(nodesFlag); nodesDef != "" {
			if err := seed(fs, nodesDef); err != nil {
				logger.Fatal().Err(err).Str("nodes", nodesDef).Msg("Failed to seed filesystem")
			}
		} else {
			logger.Warn().Msg("No definitions file provided; dumping empty tree")
		}

		stat := fs.Stat()
		logger.Info().Str("instance", stat.InstanceID.String()).Int("nodes", stat.NodeCount).Msg("Filesystem seeded")

		printTree(fs, fs.Root(), "")
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringP(nodesFlag, "n", "", "Path to a JSON node definitions file")
	if err := viper.BindPFlags(dumpCmd.Flags()); err != nil {
		panic(err)
	}
}

// seed loads a JSON array of node definitions and applies them: directories
// first, then files, then hard links so their targets already exist.
func seed(fs *filesystem.FileSystem, nodesDef string) error {
	logger := util.GetLogger("seed")

	defData, err := os.ReadFile(nodesDef)
	if err != nil {
		return fmt.Errorf("read definitions: %w", err)
	}

	var rawNodes []json.RawMessage
	if err := json.Unmarshal(defData, &rawNodes); err != nil {
		return fmt.Errorf("unmarshal definitions: %w", err)
	}

	var fileRequests []*memtree.FileCreateRequest
	var dirRequests []*memtree.DirCreateRequest
	var linkRequests []*memtree.LinkCreateRequest

	for _, rawNode := range rawNodes {
		nodeType, err := requests.GetNodeType(rawNode)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to get node type")
			continue
		}

		switch nodeType {
		case memtree.FileNodeType:
			req, err := requests.UnmarshalFileRequest(rawNode)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to unmarshal file request")
				continue
			}
			fileRequests = append(fileRequests, req)

		case memtree.DirNodeType:
			req, err := requests.UnmarshalDirRequest(rawNode)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to unmarshal directory request")
				continue
			}
			dirRequests = append(dirRequests, req)

		case memtree.HardlinkNodeType:
			req, err := requests.UnmarshalLinkRequest(rawNode)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to unmarshal hardlink request")
				continue
			}
			linkRequests = append(linkRequests, req)

		default:
			logger.Warn().Str("type", string(nodeType)).Msg("Unknown node type")
		}
	}

	for _, req := range dirRequests {
		if _, err := mkdirAll(fs, req.Path, req.Mode); err != nil {
			logger.Error().Err(err).Str("path", req.Path).Msg("Failed to add directory")
		}
	}
	for _, req := range fileRequests {
		if err := addFile(fs, req); err != nil {
			logger.Error().Err(err).Str("path", req.Path).Msg("Failed to add file")
		}
	}
	for _, req := range linkRequests {
		if err := addLink(fs, req); err != nil {
			logger.Error().Err(err).Str("path", req.Path).Str("target", req.Target).Msg("Failed to add hardlink")
		}
	}

	logger.Info().Int("directories", len(dirRequests)).Int("files", len(fileRequests)).
		Int("hardlinks", len(linkRequests)).Msg("Applied node definitions")
	return nil
}

// splitPath breaks a definitions path into name segments. The engine never
// sees paths; this layer resolves them one name at a time.
func splitPath(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// resolve walks the tree one segment at a time from the root.
func resolve(fs *filesystem.FileSystem, p string) (*filesystem.Node, bool) {
	cur := fs.Root()
	for _, name := range splitPath(p) {
		child, ok := fs.Lookup(cur, name)
		if !ok {
			return nil, false
		}
		cur = child
	}
	return cur, true
}

// mkdirAll creates any missing directories along p and returns the leaf.
// Equivalent to `mkdir -p`: existing directories are not an error.
func mkdirAll(fs *filesystem.FileSystem, p string, mode uint32) (*filesystem.Node, error) {
	cur := fs.Root()
	for _, name := range splitPath(p) {
		if child, ok := fs.Lookup(cur, name); ok {
			if !child.IsDir() {
				return nil, fmt.Errorf("mkdir %q: %w", p, filesystem.ErrNotDirectory)
			}
			cur = child
			continue
		}
		child, err := fs.Mkdir(cur, name, mode)
		if err != nil {
			return nil, err
		}
		cur = child
	}
	return cur, nil
}

// addFile creates the file (pre-resolving the name per the Create contract)
// and writes any inline contents.
func addFile(fs *filesystem.FileSystem, req *memtree.FileCreateRequest) error {
	dirPath, name := path.Split(req.Path)
	parent, err := mkdirAll(fs, dirPath, 0o755)
	if err != nil {
		return err
	}
	if _, ok := fs.Lookup(parent, name); ok {
		return fmt.Errorf("add file %q: %w", req.Path, filesystem.ErrExist)
	}

	node, err := fs.Create(parent, name, req.Mode)
	if err != nil {
		return err
	}
	if len(req.Contents) > 0 {
		if _, err := node.Write(req.Contents, 0, false); err != nil {
			return err
		}
	}
	return nil
}

func addLink(fs *filesystem.FileSystem, req *memtree.LinkCreateRequest) error {
	target, ok := resolve(fs, req.Target)
	if !ok {
		return fmt.Errorf("add hardlink %q: target %q: %w", req.Path, req.Target, filesystem.ErrNotFound)
	}

	dirPath, name := path.Split(req.Path)
	parent, err := mkdirAll(fs, dirPath, 0o755)
	if err != nil {
		return err
	}
	if _, ok := fs.Lookup(parent, name); ok {
		return fmt.Errorf("add hardlink %q: %w", req.Path, filesystem.ErrExist)
	}

	_, err = fs.Link(parent, name, target)
	return err
}

// printTree walks the tree through the directory cursor, one directory per
// call, printing names, identifiers and file sizes.
func printTree(fs *filesystem.FileSystem, dir *filesystem.Node, indent string) {
	var pos uint64 = 2 // skip the dot entries
	var children []*filesystem.Node

	_ = fs.ReadDir(dir, &pos, func(e fuse.DirEntry) bool {
		if child, ok := fs.Lookup(dir, e.Name); ok {
			children = append(children, child)
		}
		return true
	})

	for _, child := range children {
		if child.IsDir() {
			fmt.Printf("%s%s/ (ino=%d)\n", indent, child.Name(), child.Ino())
			printTree(fs, child, indent+"  ")
		} else {
			fmt.Printf("%s%s (ino=%d, %d bytes)\n", indent, child.Name(), child.Ino(), child.Size())
		}
	}
}
