package bookmarks

import (
	"sort"

	"github.com/juju/errors"
	"github.com/mitchellh/mapstructure"
)

// Bookmark contains information about a bookmarked cluster connection
type Bookmark struct {
	Addresses []string `mapstructure:"addresses" json:"addresses"`
	User      string   `mapstructure:"user" json:"user"`
	Password  string   `mapstructure:"password" json:"-"`
	Alias     string   `mapstructure:"alias" json:"alias"`
}

// Bookmarks maps a profile name to its connection.
type Bookmarks map[string]Bookmark

// Decode builds bookmarks from the raw "clusters" settings of a config file.
func Decode(raw map[string]interface{}) (Bookmarks, error) {
	b := Bookmarks{}
	for name, conf := range raw {
		var bm Bookmark
		if err := mapstructure.Decode(conf, &bm); err != nil {
			return nil, errors.Annotatef(err, "cluster %s", name)
		}
		if bm.Alias == "" {
			bm.Alias = name
		}
		b[name] = bm
	}
	return b, nil
}

func (b Bookmarks) Get(name string) (Bookmark, error) {
	conf, ok := b[name]
	if !ok {
		return Bookmark{}, errors.NotFoundf("cluster config %q", name)
	}
	if len(conf.Addresses) == 0 {
		return Bookmark{}, errors.NotValidf("cluster config %q without addresses", name)
	}
	return conf, nil
}

// Names returns all profile names, sorted
func (b Bookmarks) Names() []string {
	c := make([]string, 0, len(b))
	for k := range b {
		c = append(c, k)
	}
	sort.Strings(c)
	return c
}
