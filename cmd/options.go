package cmd

import (
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Version   bool   `short:"v" long:"version" description:"Print version"`
	Debug     bool   `short:"d" long:"debug" description:"Enable debug logging"`
	ConfigDir string `long:"config-dir" description:"Directory holding esmigrate.{yaml,toml,json}" default:""`

	Source        string `short:"s" long:"source" description:"Source cluster bookmark from the config file"`
	SourceAddress string `long:"source-address" description:"Source cluster http url"`
	SourceUser    string `long:"source-user" description:"Source cluster user"`
	SourcePass    string `long:"source-pass" description:"Source cluster password"`
	Dest          string `short:"t" long:"dest" description:"Destination cluster bookmark from the config file"`
	DestAddress   string `long:"dest-address" description:"Destination cluster http url"`
	DestUser      string `long:"dest-user" description:"Destination cluster user"`
	DestPass      string `long:"dest-pass" description:"Destination cluster password"`

	Repository     string `short:"r" long:"repository" description:"Snapshot repository registered on both clusters"`
	IndexPrefix    string `long:"index-prefix" description:"Index name prefix, followed by YYYY-MM-DD"`
	SnapshotPrefix string `long:"snapshot-prefix" description:"Snapshot name prefix, followed by YYYY_MM_DD"`

	Start string `long:"start" description:"First date of the range (YYYY-MM-DD)"`
	End   string `long:"end" description:"Last date of the range (YYYY-MM-DD)"`

	Yes        bool   `short:"y" long:"yes" description:"Do not ask for confirmation"`
	DryRun     bool   `long:"dry-run" description:"Print the planned units and exit"`
	OnConflict string `long:"on-conflict" description:"What to do when the destination index exists" choice:"prompt" choice:"skip" choice:"overwrite" default:"prompt"`

	Replicate   bool   `long:"replicate" description:"Pull snapshot files from the source host before importing"`
	NoReplicate bool   `long:"no-replicate" description:"Snapshot files were already copied"`
	RemoteHost  string `long:"remote-host" description:"rsync source as user@host"`
	RemoteDir   string `long:"remote-dir" description:"Snapshot directory on the source host"`
	StagingDir  string `long:"staging-dir" description:"Local staging directory for the transfer"`
	ArtifactDir string `long:"artifact-dir" description:"Directory the destination repository reads from"`
	OwnerUID    int    `long:"owner-uid" description:"Owner uid for relocated files (-1 keeps it)" default:"-1"`
	OwnerGID    int    `long:"owner-gid" description:"Owner gid for relocated files (-1 keeps it)" default:"-1"`

	OperationTimeout time.Duration `long:"operation-timeout" description:"Limit for one snapshot or restore call (0 disables)"`
	ReadyTimeout     time.Duration `long:"ready-timeout" description:"Limit for waiting on deletes and restored indices"`
	PollInterval     time.Duration `long:"poll-interval" description:"Interval between readiness checks"`
	Pause            time.Duration `long:"pause" description:"Pause between two units"`

	LogFile     string `long:"log-file" description:"Operational log, truncated on start (default <action>.log)"`
	HistoryFile string `long:"history-file" description:"Audit history log, truncated on start (default <action>_history.log)"`
	Listen      string `long:"listen" description:"Serve run status over HTTP on host:port"`

	Args struct {
		Action string `positional-arg-name:"action" description:"export, import or version"`
	} `positional-args:"yes"`

	// set holds the long names of flags given on the command line, so an
	// explicit zero can override a config file value.
	set map[string]bool
}

// Flags whose zero value is meaningful when given explicitly.
var zeroableFlags = []string{"operation-timeout", "ready-timeout", "poll-interval", "pause"}

func (o Options) isSet(long string) bool {
	return o.set[long]
}

// ParseOptions returns a new options struct from the input arguments
func ParseOptions(args []string) (Options, error) {
	var opts = Options{}

	parser := flags.NewParser(&opts, flags.Default)
	_, err := parser.ParseArgs(args)
	if err != nil {
		return opts, err
	}

	opts.set = make(map[string]bool)
	for _, name := range zeroableFlags {
		if o := parser.FindOptionByLongName(name); o != nil && o.IsSet() {
			opts.set[name] = true
		}
	}

	if opts.SourcePass == "" && os.Getenv("SOURCE_PASS") != "" {
		opts.SourcePass = os.Getenv("SOURCE_PASS")
	}

	if opts.DestPass == "" && os.Getenv("DEST_PASS") != "" {
		opts.DestPass = os.Getenv("DEST_PASS")
	}

	if opts.Args.Action == "version" {
		opts.Version = true
	}

	return opts, nil
}
