package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rubiojr/filefinder/pkg/config"
	"github.com/rubiojr/filefinder/pkg/filetypes"
	"github.com/rubiojr/filefinder/pkg/search"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Margin(0, 0, 0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160"))

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)
)

func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search files",
		ArgsUsage: "[filename pattern]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "user",
				Usage: "User to search for (defaults to the only configured home)",
			},
			&cli.StringFlag{
				Name:    "content",
				Aliases: []string{"c"},
				Usage:   "Text the files must contain",
			},
			&cli.StringFlag{
				Name:    "filename",
				Aliases: []string{"f"},
				Usage:   "File name pattern, * and ? wildcards allowed",
			},
			&cli.StringSliceFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "File type category (" + strings.Join(filetypes.Categories(), ", ") + ")",
			},
			&cli.StringFlag{
				Name:  "before",
				Usage: "Only files modified before this date",
			},
			&cli.StringFlag{
				Name:  "after",
				Usage: "Only files modified after this date",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Folder to leave out",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Zero based result page",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Results per page",
				Value: search.DefaultPageSize,
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort by score, modified or path",
				Value: string(search.SortScore),
			},
			&cli.StringFlag{
				Name:  "order",
				Usage: "Sort order, asc or desc",
				Value: string(search.Desc),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the raw JSON response",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "types",
				Usage: "List the file type categories",
				Action: func(ctx context.Context, c *cli.Command) error {
					printTypes()
					return nil
				},
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			criteria := search.Criteria{
				Content:        c.String("content"),
				Filename:       c.String("filename"),
				FileTypes:      c.StringSlice("type"),
				BeforeDate:     c.String("before"),
				AfterDate:      c.String("after"),
				ExcludeFolders: c.StringSlice("exclude"),
			}
			if criteria.Filename == "" && c.Args().Len() > 0 {
				criteria.Filename = c.Args().First()
			}
			paging := search.Paging{
				Page:  c.Int("page"),
				Size:  c.Int("size"),
				Sort:  search.ParseSortField(c.String("sort")),
				Order: search.ParseOrder(c.String("order")),
			}
			return searchFiles(ctx, c.String("config"), c.String("user"), criteria, paging, c.Bool("json"))
		},
	}
}

func searchFiles(ctx context.Context, configPath, user string, criteria search.Criteria, paging search.Paging, asJSON bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if user == "" {
		user = defaultUser(cfg)
	}

	stack, err := openSearchStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	svc, err := stack.service(search.StaticIdentity(user))
	if err != nil {
		return err
	}

	resp, err := svc.Search(ctx, criteria, paging)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	fmt.Print(renderResponse(resp))
	return nil
}

// defaultUser returns the user of the only configured home.
func defaultUser(cfg *config.Config) string {
	if len(cfg.Files.Homes) != 1 {
		return ""
	}
	for user := range cfg.Files.Homes {
		return user
	}
	return ""
}

func renderResponse(resp *search.Response) string {
	var out strings.Builder

	title := fmt.Sprintf("%d results (page %d, %s backend)", resp.Hits, resp.Page, resp.Backend)
	out.WriteString(titleStyle.Render(title))
	out.WriteString("\n")

	if len(resp.Files) == 0 {
		out.WriteString(noDataStyle.Render("No files found"))
		out.WriteString("\n")
		return out.String()
	}

	for _, rec := range resp.Files {
		if rec.Degraded() {
			out.WriteString(errorStyle.Render(fmt.Sprintf("%s: %s", rec.Name, rec.Error)))
			out.WriteString("\n")
			continue
		}
		out.WriteString(nameStyle.Render(rec.Name))
		out.WriteString("\n")

		meta := rec.ContentType
		if rec.ModifiedAt != nil {
			meta += " · " + formatTime(time.Unix(*rec.ModifiedAt, 0))
		}
		out.WriteString(metaStyle.Render(meta))
		out.WriteString("\n")

		fields := make([]string, 0, len(rec.Highlights))
		for field := range rec.Highlights {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			for _, fragment := range rec.Highlights[field] {
				out.WriteString(highlightStyle.Render(fragment))
				out.WriteString("\n")
			}
		}
		out.WriteString(metaStyle.Render(rec.Link))
		out.WriteString("\n\n")
	}
	return out.String()
}

func printTypes() {
	caser := cases.Title(language.English)
	fmt.Println(titleStyle.Render("File types"))
	for _, name := range filetypes.Categories() {
		exts := filetypes.ExtensionsFor([]string{name})
		fmt.Printf("%s %s\n", nameStyle.Render(fmt.Sprintf("%-14s", caser.String(name))), metaStyle.Render(strings.Join(exts, ", ")))
	}
}
