package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/folio/pkg/epub"
)

func main() {
	log := logger.New()

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the cover image"`
		Chapter     int    `short:"c" long:"chapter" description:"Print the contents of this spine position" default:"-1"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-epub <path/to/file.epub>")
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		log.Err(err).Fatal("read file error")
	}

	book, err := epub.Open(data)
	if err != nil {
		log.Err(err).Fatal("epub parse error")
	}

	fmt.Printf("OPF: %s\nTitle: %s\nAuthor(s): %s\nLanguage: %s\nChapters: %d\n",
		book.OPFPath, book.OPF.Title, strings.Join(book.OPF.Authors, "; "), book.OPF.Language, book.ChapterCount())
	for i, item := range book.OPF.Spine {
		fmt.Printf("  %3d  %s (%s)\n", i, item.Filepath, item.MediaType)
	}
	printTOC(book.TOC, 0)

	cover, mimeType, err := book.Cover()
	if err != nil {
		log.Err(err).Warn("cover read error")
	}
	fmt.Printf("Has Cover Data: %v\nCover Mime Type: %s\n", len(cover) > 0, mimeType)

	if opts.CoverOutput != "" && cover != nil {
		if err := os.WriteFile(opts.CoverOutput, cover, 0600); err != nil {
			log.Err(err).Fatal("file write error")
		}
	}

	if opts.Chapter >= 0 {
		chapter, err := book.Chapter(opts.Chapter)
		if err != nil {
			log.Err(err).Fatal("chapter read error")
		}
		fmt.Println(string(chapter))
	}
}

func printTOC(entries []epub.TOCEntry, depth int) {
	if depth == 0 && len(entries) > 0 {
		fmt.Println("Contents:")
	}
	for _, entry := range entries {
		fmt.Printf("%s- %s %s\n", strings.Repeat("  ", depth+1), entry.Title, entry.Href)
		printTOC(entry.Children, depth+1)
	}
}
