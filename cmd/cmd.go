package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"

	"github.com/ll2l/esmigrate/api"
	"github.com/ll2l/esmigrate/client"
	"github.com/ll2l/esmigrate/dates"
	"github.com/ll2l/esmigrate/history"
	"github.com/ll2l/esmigrate/logging"
	"github.com/ll2l/esmigrate/migrate"
	"github.com/ll2l/esmigrate/prompt"
	"github.com/ll2l/esmigrate/replicate"
)

const version = "esmigrate v0.1.0"

// Exit codes.
const (
	exitOK           = 0
	exitPrecondition = 1
	exitUnitsFailed  = 3
)

const (
	actionExport = "export"
	actionImport = "import"
)

// app holds the process streams so a whole run can be driven from tests.
type app struct {
	opts   Options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	prompt *prompt.Prompter
}

func Run() {
	os.Exit(Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Main runs one export or import and returns the process exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := ParseOptions(args)
	if err != nil {
		if _, ok := err.(*flags.Error); !ok {
			fmt.Fprintln(stderr, err.Error())
		}
		return exitPrecondition
	}
	if opts.Version {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	a := &app{
		opts:   opts,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		prompt: prompt.New(stdin, stdout),
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := a.run(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return code
}

func (a *app) run(ctx context.Context) (int, error) {
	action := a.opts.Args.Action
	if action != actionExport && action != actionImport {
		return exitPrecondition, errors.NotValidf("action %q (want export or import)", action)
	}

	v := newViper()
	if _, err := readConfigFile(v, a.opts.ConfigDir); err != nil {
		return exitPrecondition, err
	}
	s, err := loadSettings(a.opts, v)
	if err != nil {
		return exitPrecondition, err
	}

	days, err := a.dateRange()
	if err != nil {
		return exitPrecondition, err
	}
	printPlan(a.stdout, action, days, s.Migration.Naming, s.Migration.Repository)
	if a.opts.DryRun {
		return exitOK, nil
	}
	if !a.opts.Yes {
		ok, err := a.prompt.Confirm("proceed?")
		if err != nil {
			return exitPrecondition, err
		}
		if !ok {
			fmt.Fprintln(a.stdout, "aborted")
			return exitOK, nil
		}
	}

	log, logCloser, err := logging.New(a.stderr, pick(a.opts.LogFile, action+".log"), a.opts.Debug)
	if err != nil {
		return exitPrecondition, err
	}
	defer logCloser.Close()

	audit, err := history.Create(pick(a.opts.HistoryFile, action+"_history.log"))
	if err != nil {
		return exitPrecondition, err
	}
	defer audit.Close()

	src, err := client.NewFromBookmark(s.Source)
	if err != nil {
		return exitPrecondition, err
	}

	var wf migrate.Workflow
	switch action {
	case actionExport:
		if err := migrate.CheckCluster(ctx, "source", src, s.Migration.Repository); err != nil {
			return exitPrecondition, err
		}
		log.Infof("source %s (%s) ready, repository %q", src.Alias, src.ServerVersion(), s.Migration.Repository)
		wf = migrate.NewExporter(src, s.Migration, log)

	case actionImport:
		dst, err := client.NewFromBookmark(s.Dest)
		if err != nil {
			return exitPrecondition, err
		}
		if err := a.replicate(ctx, s.Replicate, log); err != nil {
			return exitPrecondition, err
		}
		if err := migrate.CheckCluster(ctx, "destination", dst, s.Migration.Repository); err != nil {
			return exitPrecondition, err
		}
		if err := migrate.CheckCluster(ctx, "source", src, ""); err != nil {
			return exitPrecondition, err
		}
		log.Infof("destination %s (%s) ready, repository %q", dst.Alias, dst.ServerVersion(), s.Migration.Repository)

		im := migrate.NewImporter(src, dst, a.resolver(), s.Migration, log)
		im.SetAutoSkip(a.opts.OnConflict == "skip")
		wf = im
		defer a.listIndices(ctx, dst, s.Migration.Naming.IndexPrefix+"*", log)
	}

	tracker := api.NewTracker(action, len(days), audit)
	if a.opts.Listen != "" {
		shutdown := serveStatus(a.opts.Listen, tracker, a.opts.Debug, log)
		defer shutdown()
	}

	runner := &migrate.Runner{
		Workflow:  wf,
		Config:    s.Migration,
		Audit:     audit,
		Log:       log,
		Observers: []migrate.Observer{newReporter(a.stdout, len(days)), tracker},
	}
	started := time.Now()
	tally, err := runner.Run(ctx, days)
	tracker.Finish(err)
	printTally(a.stdout, tally, time.Since(started))

	if err != nil {
		return exitPrecondition, errors.Annotate(err, "run interrupted")
	}
	if tally.Failed > 0 {
		return exitUnitsFailed, nil
	}
	return exitOK, nil
}

func (a *app) dateRange() ([]time.Time, error) {
	start, end := a.opts.Start, a.opts.End
	var s, e time.Time
	var err error

	if start == "" {
		s, err = a.prompt.Date("start date")
	} else {
		s, err = dates.Parse(start)
	}
	if err != nil {
		return nil, err
	}
	if end == "" {
		e, err = a.prompt.Date("end date")
	} else {
		e, err = dates.Parse(end)
	}
	if err != nil {
		return nil, err
	}
	return dates.Expand(s, e)
}

func (a *app) resolver() migrate.ConflictResolver {
	switch a.opts.OnConflict {
	case "overwrite":
		return migrate.Always(migrate.DecisionOverwrite)
	case "skip":
		return migrate.Always(migrate.DecisionSkip)
	}
	return a.prompt
}

// replicate runs the optional transfer step. Only a failed transfer stops
// the import.
func (a *app) replicate(ctx context.Context, cfg replicate.Config, log logrus.FieldLogger) error {
	do := a.opts.Replicate
	if !a.opts.Replicate && !a.opts.NoReplicate {
		n, err := a.prompt.Choose("snapshot files on the destination host:",
			"pull them from "+pick(cfg.RemoteHost, "the source host")+" now",
			"already copied manually")
		if err != nil {
			return err
		}
		do = n == 0
	}
	if !do {
		log.Info("skipping replication, snapshot files assumed in place")
		return nil
	}

	return errors.Annotate(replicate.New(cfg, log).Run(ctx), "replication")
}

func (a *app) listIndices(ctx context.Context, dst *client.Client, pattern string, log logrus.FieldLogger) {
	rows, err := dst.Indices(ctx, pattern)
	if err != nil {
		log.WithError(err).Warn("cannot list destination indices")
		return
	}
	printIndices(a.stdout, rows)
}

// serveStatus starts the status API and returns a function stopping it.
func serveStatus(addr string, t *api.Tracker, debug bool, log logrus.FieldLogger) func() {
	srv := &http.Server{Addr: addr, Handler: api.NewRouter(t, debug)}
	go func() {
		log.Infof("serving run status on http://%s/api/status", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("status server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
