package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/pretty"

	"github.com/bihua-university/catalog/internal/client"
)

const usage = `usage: catalogctl [-server URL] [-token T] <command>

commands:
  models                         list the admin models
  top <albums|songs|bands|genres> [album|song|revenue]
  list <model> [page]
`

var errUsage = errors.New("usage")

func main() {
	log.SetFlags(0)
	log.SetPrefix("catalogctl: ")

	server := flag.String("server", envOr("CATALOG_SERVER", "http://localhost:8080"), "admin server URL")
	token := flag.String("token", os.Getenv("CATALOG_TOKEN"), "admin bearer token")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := run(ctx, client.New(*server, *token), flag.Args(), os.Stdout)
	if errors.Is(err, errUsage) {
		if err != errUsage {
			fmt.Fprintln(os.Stderr, err)
		}
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "models":
		names, err := c.Models(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, strings.Join(names, "\n"))
		return nil
	case "top":
		if len(args) < 2 {
			return fmt.Errorf("%w: top needs a ranking", errUsage)
		}
		by := ""
		if len(args) > 2 {
			by = args[2]
		}
		res, err := c.Top(ctx, args[1], by)
		if err != nil {
			return err
		}
		_, err = out.Write(pretty.Pretty([]byte(res.Get("data").Raw)))
		return err
	case "list":
		if len(args) < 2 {
			return fmt.Errorf("%w: list needs a model", errUsage)
		}
		page := 1
		if len(args) > 2 {
			p, err := strconv.Atoi(args[2])
			if err != nil || p < 1 {
				return fmt.Errorf("list: bad page %q", args[2])
			}
			page = p
		}
		res, err := c.List(ctx, args[1], page)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "page %d, %d total\n", res.Get("page").Int(), res.Get("total").Int())
		_, err = out.Write(pretty.Pretty([]byte(res.Get("data").Raw)))
		return err
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
