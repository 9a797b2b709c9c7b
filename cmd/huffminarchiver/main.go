package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
	"rsc.io/getopt"

	"github.com/kelbwah/huffmin-archiver/internal/container"
	"github.com/kelbwah/huffmin-archiver/internal/pathexpr"
)

var (
	archivePath = flag.String("archive", "", "path to the container file")
	src         = flag.String("src", "", "path expression to archive")
	dest        = flag.String("dest", "", "destination directory for extraction")
	member      = flag.String("member", "", "member name for extract-one")
	file        = flag.String("file", "", "replacement file path for update")
	oneShot     = flag.String("cmd", "", "one-shot command: archive|extract-one|extract-all|info|check|update")
)

func main() {
	getopt.Alias("a", "archive")
	getopt.Alias("s", "src")
	getopt.Alias("d", "dest")
	getopt.Alias("m", "member")
	getopt.Alias("f", "file")
	getopt.Alias("c", "cmd")

	if err := getopt.CommandLine.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *oneShot != "" {
		if err := dispatch(fields(*oneShot, *archivePath, *src, *dest, *member, *file)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	repl()
}

// fields reassembles a one-shot flag invocation into the same token shape
// the interactive loop parses, so both paths share dispatch.
func fields(cmd, archive, src, dest, member, file string) []string {
	switch cmd {
	case "archive":
		return []string{"archive", src, archive}
	case "extract-one":
		return []string{"extract", "one", archive, member, dest}
	case "extract-all":
		return []string{"extract", "all", archive, dest}
	case "info":
		return []string{"info", archive}
	case "check":
		return []string{"check", archive}
	case "update":
		return []string{"update", archive, file}
	default:
		return []string{cmd}
	}
}

func repl() {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("huffminarchiver> ")
		}
		if !scanner.Scan() {
			return
		}
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if tokens[0] == "exit" {
			return
		}
		if err := dispatch(tokens); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// dispatch executes one command line: archive | extract {one|all} | info |
// check | update, per the interactive grammar. exit is handled by repl
// before dispatch is called.
func dispatch(tokens []string) error {
	switch tokens[0] {
	case "archive":
		if len(tokens) != 3 {
			return fmt.Errorf("usage: archive <path-expression> <dest-archive>")
		}
		return doArchive(tokens[1], tokens[2])
	case "extract":
		if len(tokens) < 2 {
			return fmt.Errorf("usage: extract one <archive> <member> <dest-dir> | extract all <archive> <dest-dir>")
		}
		switch tokens[1] {
		case "one":
			if len(tokens) != 5 {
				return fmt.Errorf("usage: extract one <archive> <member> <dest-dir>")
			}
			return doExtractOne(tokens[2], tokens[3], tokens[4])
		case "all":
			if len(tokens) != 4 {
				return fmt.Errorf("usage: extract all <archive> <dest-dir>")
			}
			return doExtractAll(tokens[2], tokens[3])
		default:
			return fmt.Errorf("extract: unknown mode %q", tokens[1])
		}
	case "info":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: info <archive>")
		}
		return doInfo(tokens[1])
	case "check":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: check <archive>")
		}
		return doCheck(tokens[1])
	case "update":
		if len(tokens) != 3 {
			return fmt.Errorf("usage: update <archive> <replacement-file>")
		}
		return doUpdate(tokens[1], tokens[2])
	default:
		return fmt.Errorf("unknown command %q", tokens[0])
	}
}

func doArchive(expr, destPath string) error {
	entries, err := pathexpr.Resolve(expr)
	if err != nil {
		return err
	}
	if err := container.Create(entries, destPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d members)\n", destPath, len(entries))
	return nil
}

func doExtractOne(archivePath, member, destDir string) error {
	a, err := container.Open(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.ExtractOne(member, destDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no member named %q", member)
	}
	fmt.Printf("extracted %s to %s\n", member, destDir)
	return nil
}

func doExtractAll(archivePath, destDir string) error {
	a, err := container.Open(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ExtractAll(destDir); err != nil {
		return err
	}
	fmt.Printf("extracted %d members to %s\n", len(a.Records), destDir)
	return nil
}

func doInfo(archivePath string) error {
	a, err := container.Open(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, m := range a.Info() {
		fmt.Printf("%-32s %10d -> %10d  (%.1f%%)\n", m.Name, m.Size, m.CompressedSize, m.Ratio)
	}
	return nil
}

func doCheck(archivePath string) error {
	ok, err := container.CheckIntegrity(archivePath)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("ok")
	} else {
		fmt.Println("corrupted")
	}
	return nil
}

func doUpdate(archivePath, replacementPath string) error {
	a, err := container.Open(archivePath)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.Update(replacementPath)
	if errors.Is(err, container.ErrUpToDate) {
		fmt.Println("already up to date")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println("updated")
	return nil
}
