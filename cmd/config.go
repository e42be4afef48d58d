package cmd

import (
	"os"

	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/ll2l/esmigrate/bookmarks"
	"github.com/ll2l/esmigrate/client"
	"github.com/ll2l/esmigrate/migrate"
	"github.com/ll2l/esmigrate/replicate"
)

const configName = "esmigrate"

// settings is everything a run needs, resolved from defaults, the config
// file and flags, in that order of precedence.
type settings struct {
	Source    bookmarks.Bookmark
	Dest      bookmarks.Bookmark
	Migration migrate.Config
	Replicate replicate.Config
}

func newViper() *viper.Viper {
	v := viper.New()
	def := migrate.DefaultConfig()
	v.SetDefault("migration.repository", def.Repository)
	v.SetDefault("migration.index_prefix", def.Naming.IndexPrefix)
	v.SetDefault("migration.snapshot_prefix", def.Naming.SnapshotPrefix)
	v.SetDefault("migration.operation_timeout", def.OperationTimeout)
	v.SetDefault("migration.ready_timeout", def.ReadyTimeout)
	v.SetDefault("migration.poll_interval", def.PollInterval)
	v.SetDefault("migration.pause", def.Pause)

	rep := replicate.DefaultConfig()
	v.SetDefault("replication.remote_dir", rep.RemoteDir)
	v.SetDefault("replication.staging_dir", rep.StagingDir)
	v.SetDefault("replication.artifact_dir", rep.ArtifactDir)
	v.SetDefault("replication.uid", rep.UID)
	v.SetDefault("replication.gid", rep.GID)
	v.SetDefault("replication.rsync", rep.Rsync)
	v.SetDefault("replication.ssh", rep.SSH)
	return v
}

// readConfigFile loads esmigrate.* from dir. A missing file is not an
// error.
func readConfigFile(v *viper.Viper, dir string) (bool, error) {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	v.SetConfigName(configName)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, errors.Annotate(err, "cannot parse config file")
	}
	return true, nil
}

func loadSettings(opts Options, v *viper.Viper) (settings, error) {
	var s settings

	marks, err := bookmarks.Decode(v.GetStringMap("clusters"))
	if err != nil {
		return s, errors.Trace(err)
	}
	s.Source, err = resolveCluster(marks,
		pick(opts.Source, v.GetString("migration.source")),
		opts.SourceAddress, opts.SourceUser, opts.SourcePass, "source")
	if err != nil {
		return s, errors.Trace(err)
	}
	s.Dest, err = resolveCluster(marks,
		pick(opts.Dest, v.GetString("migration.dest")),
		opts.DestAddress, opts.DestUser, opts.DestPass, "destination")
	if err != nil {
		return s, errors.Trace(err)
	}

	m := migrate.DefaultConfig()
	m.Repository = pick(opts.Repository, v.GetString("migration.repository"))
	m.Naming.IndexPrefix = pick(opts.IndexPrefix, v.GetString("migration.index_prefix"))
	m.Naming.SnapshotPrefix = pick(opts.SnapshotPrefix, v.GetString("migration.snapshot_prefix"))
	m.OperationTimeout = v.GetDuration("migration.operation_timeout")
	if opts.isSet("operation-timeout") {
		m.OperationTimeout = opts.OperationTimeout
	}
	m.ReadyTimeout = v.GetDuration("migration.ready_timeout")
	if opts.isSet("ready-timeout") {
		m.ReadyTimeout = opts.ReadyTimeout
	}
	m.PollInterval = v.GetDuration("migration.poll_interval")
	if opts.isSet("poll-interval") {
		m.PollInterval = opts.PollInterval
	}
	m.Pause = v.GetDuration("migration.pause")
	if opts.isSet("pause") {
		m.Pause = opts.Pause
	}
	if err := m.Validate(); err != nil {
		return s, errors.Trace(err)
	}
	s.Migration = m

	r := replicate.DefaultConfig()
	r.RemoteHost = pick(opts.RemoteHost, v.GetString("replication.remote_host"))
	r.RemoteDir = pick(opts.RemoteDir, v.GetString("replication.remote_dir"))
	r.StagingDir = pick(opts.StagingDir, v.GetString("replication.staging_dir"))
	r.ArtifactDir = pick(opts.ArtifactDir, v.GetString("replication.artifact_dir"))
	r.UID = v.GetInt("replication.uid")
	if opts.OwnerUID >= 0 {
		r.UID = opts.OwnerUID
	}
	r.GID = v.GetInt("replication.gid")
	if opts.OwnerGID >= 0 {
		r.GID = opts.OwnerGID
	}
	r.Rsync = v.GetString("replication.rsync")
	r.SSH = v.GetString("replication.ssh")
	s.Replicate = r

	return s, nil
}

// resolveCluster prefers an explicit address over a bookmark and falls back
// to the default local cluster.
func resolveCluster(marks bookmarks.Bookmarks, name, address, user, pass, role string) (bookmarks.Bookmark, error) {
	var b bookmarks.Bookmark
	switch {
	case address != "":
		b = bookmarks.Bookmark{Addresses: []string{address}, Alias: role}
	case name != "":
		var err error
		if b, err = marks.Get(name); err != nil {
			return b, errors.Annotatef(err, "%s cluster", role)
		}
	default:
		b = bookmarks.Bookmark{Addresses: []string{client.DefaultCluster}, Alias: role}
	}
	if user != "" {
		b.User = user
	}
	if pass != "" {
		b.Password = pass
	}
	return b, nil
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
