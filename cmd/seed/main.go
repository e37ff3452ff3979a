package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Ashenafi-pixel/prizewheel"
	"github.com/Ashenafi-pixel/prizewheel/catalog"
	"github.com/Ashenafi-pixel/prizewheel/server"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	file := flag.String("file", "", "Seed JSON file (array of products); empty uses the built-in catalog")
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN; empty writes the JSON catalog")
	dataDir := flag.String("data", envOr("DATA_DIR", "data"), "JSON catalog directory")
	force := flag.Bool("force", false, "Seed even when the catalog already has products")
	hash := flag.Bool("hash-password", false, "Read a password from stdin and print its bcrypt hash for ADMIN_PASSWORD_HASH")
	flag.Parse()

	if *hash {
		if err := printHash(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "hash failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := run(context.Background(), *file, *dsn, *dataDir, *force, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(ctx context.Context, file, dsn, dataDir string, force bool, out io.Writer) error {
	items := catalog.DefaultSeed()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		items, err = catalog.ParseSeed(f)
		if err != nil {
			return err
		}
	}

	store, err := prizewheel.OpenCatalog(ctx, dsn, dataDir)
	if err != nil {
		return err
	}
	existing, err := store.FindAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 && !force {
		return fmt.Errorf("catalog already has %d products (use -force to add anyway)", len(existing))
	}

	created, err := catalog.Seed(ctx, store, items)
	for _, p := range created {
		fmt.Fprintf(out, "%s\t%5.1f%%\t%s\n", p.ID, p.Probability, p.Name)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d products\n", len(created))
	return nil
}

func printHash(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	h, err := server.HashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, h)
	return err
}
