package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rubiojr/filefinder/pkg/enrich"
	"github.com/rubiojr/filefinder/pkg/files"
	"github.com/rubiojr/filefinder/pkg/index"
	"github.com/rubiojr/filefinder/pkg/search"
	"github.com/urfave/cli/v3"
)

const (
	// maxContentBytes caps how much of a file is indexed.
	maxContentBytes = 1 << 20
	indexBatchSize  = 500
)

func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Scan home directories and add their files to the embedded full-text index",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "user",
				Usage: "Only index the home of this user",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return indexHomes(ctx, c.String("config"), c.StringSlice("user"))
		},
	}
}

func indexHomes(ctx context.Context, configPath string, users []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Files.Homes) == 0 {
		return fmt.Errorf("no home directories configured in %s", configPath)
	}

	store, err := files.OpenStore(cfg.Files.DBPath)
	if err != nil {
		return fmt.Errorf("opening file cache: %w", err)
	}
	defer store.Close()

	idx, err := index.OpenBleve(cfg.Index.BlevePath)
	if err != nil {
		return err
	}
	defer idx.Close()
	indexer := index.NewIndexer(idx)

	scanner := files.NewScanner(store, enrich.NewMimeResolver(cfg.BaseURL), cfg.Files.Homes)

	if len(users) == 0 {
		users = scanner.Users()
		sort.Strings(users)
	}

	for _, user := range users {
		if _, err := scanner.Scan(ctx, user); err != nil {
			return err
		}
		home, _ := scanner.Home(user)
		docs, err := collectDocuments(ctx, store, user, home)
		if err != nil {
			return err
		}
		for start := 0; start < len(docs); start += indexBatchSize {
			end := min(start+indexBatchSize, len(docs))
			if err := indexer.Index(docs[start:end]...); err != nil {
				return fmt.Errorf("indexing files of %s: %w", user, err)
			}
		}
		fmt.Printf("%s: %s documents indexed\n", user, formatNumber(len(docs)))
	}

	total, err := indexer.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Index at %s holds %s documents\n", cfg.Index.BlevePath, formatNumber(int(total)))
	return nil
}

// collectDocuments turns the cached files of user into index documents.
// Text files contribute their content.
func collectDocuments(ctx context.Context, store *files.Store, user, home string) ([]index.Document, error) {
	nodes, err := store.Search(ctx, &files.Query{
		User:  user,
		Order: []files.Order{{Field: files.FieldPath, Direction: search.Asc}},
	})
	if err != nil {
		return nil, fmt.Errorf("listing files of %s: %w", user, err)
	}

	var docs []index.Document
	for _, n := range nodes {
		if n.IsDir {
			continue
		}
		rel, ok := files.RelativePath(user, n.Path)
		if !ok || rel == "" {
			continue
		}

		doc := index.Document{
			FileID:       strconv.FormatInt(n.FileID, 10),
			Title:        rel,
			LastModified: n.MTime,
			ContentType:  n.MimeType,
			ShareNames:   map[string]string{user: "/" + rel},
		}
		if isText(n.MimeType) {
			content, err := readContent(filepath.Join(home, filepath.FromSlash(rel)))
			if err != nil {
				fmt.Printf("Warning: skipping content of %s: %v\n", rel, err)
			} else {
				doc.Content = content
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func isText(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/json", mimeType == "application/xml":
		return true
	}
	return false
}

func readContent(p string) (string, error) {
	f, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxContentBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
