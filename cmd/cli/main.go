// Command inkpost is a CLI client for the InkPost publishing service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Isma450/inkpost/internal/client"
	"github.com/Isma450/inkpost/internal/errs"
	"github.com/Isma450/inkpost/internal/model"
	"github.com/gofrs/uuid/v5"
)

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `inkpost CLI
Usage:
  inkpost -addr URL <cmd> [args]

Commands:
  version
  register       -u <username> -e <email> -p <password>
  login          -u <username> -p <password>            (saves session)
  logout
  whoami
  posts                                                 (list feed)
  show           -id <post>
  author         -id <author uuid>
  publish        -title <title> -file <content>         (staff only)
  comment        -id <post> -m <text>
  react          -id <post> -emoji <LIKE|LOVE|HAHA|WOW|SAD|ANGRY>
  reset-request  -e <email>
  reset-confirm  -token <token> -p <new password>
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main dispatches subcommands against an assembled client.
func main() {
	// global flags
	addr := flag.String("addr", "http://localhost:8000", "server base URL")
	verbose := flag.Bool("v", false, "log client internals")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := zap.NewNop()
	if *verbose {
		log, _ = zap.NewDevelopment()
	}
	cli := client.New(client.Options{BaseURL: *addr, Log: log})

	switch cmd {

	case "version":
		fmt.Printf("inkpost %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		e := fs.String("e", "", "email")
		p := fs.String("p", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *u == "" || *e == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u, -e and -p")
			os.Exit(1)
		}

		user, err := cli.Session.Register(ctx, *u, *e, *p)
		if err != nil {
			fail(err)
		}
		fmt.Println(user.ID)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(flag.Args()[1:])
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}

		user, err := cli.Session.Login(ctx, *u, *p)
		if err != nil {
			fail(err)
		}
		fmt.Printf("ok %s\n", user.Username)

	case "logout":
		cli.Session.Logout(ctx)
		fmt.Println("ok")

	case "whoami":
		sess := cli.Session.Current()
		if !sess.Authenticated() {
			fmt.Println("anonymous")
			break
		}
		printJSON(sess.User)

	case "posts":
		posts, err := cli.Feed.Refresh(ctx)
		if err != nil {
			fail(err)
		}
		type row struct {
			ID       int64  `json:"id"`
			Title    string `json:"title"`
			Author   string `json:"author"`
			Comments int    `json:"comments"`
		}
		rows := []row{}
		for _, p := range posts {
			rows = append(rows, row{
				ID:       p.ID,
				Title:    p.Title,
				Author:   p.Author.Username,
				Comments: len(p.Comments),
			})
		}
		printJSON(rows)

	case "show":
		fs := flag.NewFlagSet("show", flag.ExitOnError)
		id := fs.Int64("id", 0, "post id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == 0 {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}

		post, err := cli.Feed.Load(ctx, *id)
		if err != nil {
			fail(err)
		}
		fmt.Printf("#%d %s by %s (%s)\n\n%s\n", post.ID, post.Title,
			post.Author.Username, post.PublishedAt.Format(time.RFC3339), post.Content)
		if len(post.Counts) > 0 {
			parts := []string{}
			for _, e := range model.Emojis {
				if n := post.Counts[e]; n > 0 {
					parts = append(parts, fmt.Sprintf("%s=%d", e, n))
				}
			}
			if len(parts) > 0 {
				fmt.Printf("\nreactions: %s\n", strings.Join(parts, " "))
			}
		}
		for _, c := range post.Comments {
			fmt.Printf("\n[%s] %s: %s\n", c.CreatedAt.Format(time.RFC3339),
				c.Author.Username, c.Content)
		}

	case "author":
		fs := flag.NewFlagSet("author", flag.ExitOnError)
		id := fs.String("id", "", "author id")
		_ = fs.Parse(flag.Args()[1:])
		authorID, err := uuid.FromString(*id)
		if err != nil {
			fmt.Fprintln(os.Stderr, "need -id <author uuid>")
			os.Exit(1)
		}

		profile, err := cli.API.AuthorProfile(ctx, authorID)
		if err != nil {
			fail(err)
		}
		fmt.Printf("%s <%s>\n", profile.Author.Username, profile.Author.Email)
		for _, p := range profile.Posts {
			fmt.Printf("  #%d %s (%s)\n", p.ID, p.Title, p.PublishedAt.Format(time.RFC3339))
		}

	case "publish":
		fs := flag.NewFlagSet("publish", flag.ExitOnError)
		title := fs.String("title", "", "post title")
		file := fs.String("file", "", "content file ('-'=stdin)")
		_ = fs.Parse(flag.Args()[1:])
		if *title == "" || *file == "" {
			fmt.Fprintln(os.Stderr, "need -title and -file")
			os.Exit(1)
		}

		content, err := readAll(*file)
		if err != nil {
			fail(err)
		}
		post, err := cli.Feed.Publish(ctx, *title, string(content))
		if err != nil {
			fail(err)
		}
		fmt.Println(post.ID)

	case "comment":
		fs := flag.NewFlagSet("comment", flag.ExitOnError)
		id := fs.Int64("id", 0, "post id")
		msg := fs.String("m", "", "comment text")
		_ = fs.Parse(flag.Args()[1:])
		if *id == 0 || *msg == "" {
			fmt.Fprintln(os.Stderr, "need -id and -m")
			os.Exit(1)
		}

		if _, err := cli.Feed.Load(ctx, *id); err != nil {
			fail(err)
		}
		post, err := cli.Feed.AddComment(ctx, *id, *msg)
		if err != nil {
			fail(err)
		}
		fmt.Printf("ok (%d comments)\n", len(post.Comments))

	case "react":
		fs := flag.NewFlagSet("react", flag.ExitOnError)
		id := fs.Int64("id", 0, "post id")
		emoji := fs.String("emoji", "", "reaction emoji")
		_ = fs.Parse(flag.Args()[1:])
		if *id == 0 || *emoji == "" {
			fmt.Fprintln(os.Stderr, "need -id and -emoji")
			os.Exit(1)
		}

		if _, err := cli.Feed.Load(ctx, *id); err != nil {
			fail(err)
		}
		post, err := cli.Feed.ToggleReaction(ctx, *id, model.Emoji(strings.ToUpper(*emoji)))
		if err != nil {
			fail(err)
		}
		printJSON(post.ReactionCounts())

	case "reset-request":
		fs := flag.NewFlagSet("reset-request", flag.ExitOnError)
		e := fs.String("e", "", "account email")
		_ = fs.Parse(flag.Args()[1:])
		if *e == "" {
			fmt.Fprintln(os.Stderr, "need -e")
			os.Exit(1)
		}

		if err := cli.Session.ResetPasswordRequest(ctx, *e); err != nil {
			fail(err)
		}
		fmt.Println("ok (check email)")

	case "reset-confirm":
		fs := flag.NewFlagSet("reset-confirm", flag.ExitOnError)
		token := fs.String("token", "", "reset token")
		p := fs.String("p", "", "new password")
		_ = fs.Parse(flag.Args()[1:])
		if *token == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -token and -p")
			os.Exit(1)
		}

		if err := cli.Session.ResetPasswordConfirm(ctx, *token, *p); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	default:
		usage()
	}
}

// ---- helpers ----

func fail(err error) {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		fmt.Fprintln(os.Stderr, "unauthorized (login first)")
	case errors.Is(err, errs.ErrForbidden):
		fmt.Fprintln(os.Stderr, "forbidden")
	case errors.Is(err, errs.ErrNotFound):
		fmt.Fprintln(os.Stderr, "not found")
	case errors.Is(err, errs.ErrRateLimited):
		fmt.Fprintln(os.Stderr, "rate limited, try again later")
	case errors.Is(err, errs.ErrUnavailable):
		fmt.Fprintf(os.Stderr, "server unreachable: %v\n", err)
	default:
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}
