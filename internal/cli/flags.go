package cli

import (
	"flag"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mrlokans/koreader-highlights/internal/config"
	"github.com/mrlokans/koreader-highlights/internal/window"
)

// optionalInt is an int flag that remembers whether it was given.
type optionalInt struct {
	value *int
}

func (o *optionalInt) String() string {
	if o.value == nil {
		return ""
	}
	return strconv.Itoa(*o.value)
}

func (o *optionalInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	o.value = &n
	return nil
}

// commonFlags are shared by every command that loads the configuration.
type commonFlags struct {
	booksPath    string
	databasePath string
	envFile      string
	schedule     string
	from         string
	to           string
	last         optionalInt
	workers      optionalInt

	out   io.Writer
	today func() window.Date
}

func newCommonFlags() commonFlags {
	return commonFlags{
		out:   os.Stdout,
		today: func() window.Date { return window.DateOf(time.Now()) },
	}
}

func (c *commonFlags) register(fs *flag.FlagSet, withDates bool) {
	fs.StringVar(&c.databasePath, "db", "", "Path to the SQLite database (env DATABASE_PATH, default "+config.DefaultDatabasePath+")")
	fs.StringVar(&c.envFile, "env-file", config.DefaultEnvFile, "Env file to read before the environment; empty to skip")
	if withDates {
		fs.StringVar(&c.booksPath, "books", "", "Books directory containing .sdr folders (env BOOKS_PATH, default "+config.DefaultBooksPath+")")
		fs.StringVar(&c.from, "from", "", "Start date, YYYY-MM-DD (env FROM)")
		fs.StringVar(&c.to, "to", "", "End date, YYYY-MM-DD; requires -from (env TO)")
		fs.Var(&c.last, "last", "Use the last N days ending yesterday; excludes -from/-to (env LAST)")
		fs.Var(&c.workers, "workers", "Number of files processed concurrently (env SYNC_WORKERS)")
	}
}

func (c *commonFlags) load() (*config.Config, error) {
	return config.Load(config.Flags{
		BooksPath:    c.booksPath,
		DatabasePath: c.databasePath,
		EnvFile:      c.envFile,
		Schedule:     c.schedule,
		Workers:      c.workers.value,
		DateFlags: config.DateFlags{
			From: c.from,
			To:   c.to,
			Last: c.last.value,
		},
	}, c.today())
}
