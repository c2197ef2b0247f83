package giveaway

import (
	"database/sql"

	"github.com/irantownhall/townhallbot/common"
	"github.com/irantownhall/townhallbot/common/guildlogging"
	"github.com/irantownhall/townhallbot/giveaway/invitetracker"
	"github.com/pkg/errors"
)

type Plugin struct {
	db   *sql.DB
	conf *common.Config

	Invites *invitetracker.Cache
	Credits *invitetracker.Store
	Tracker *invitetracker.Tracker
	Manager *Manager
}

func (p *Plugin) PluginInfo() *common.PluginInfo {
	return &common.PluginInfo{
		Name:     "Giveaway",
		SysName:  "giveaway",
		Category: common.PluginCategoryMisc,
	}
}

var logger = common.GetPluginLogger(&Plugin{})

// InitDatabase opens the giveaway database and creates the giveaway, invite and guild log tables
func InitDatabase(path string) (*sql.DB, error) {
	db, err := common.OpenSQLite(path)
	if err != nil {
		return nil, errors.Wrap(err, "open giveaway db")
	}

	schemas := [][]string{
		DBSchemas,
		{invitetracker.DBSchema},
		guildlogging.DBSchemas,
	}
	names := []string{"giveaway", "invitetracker", "guildlogging"}

	for i, v := range schemas {
		err = common.InitSchemas(db, names[i], v...)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// RegisterPlugin opens the database and registers the plugin, the discord parts are set up in BotInit
func RegisterPlugin(conf *common.Config) (*Plugin, error) {
	db, err := InitDatabase(conf.Database.Giveaway)
	if err != nil {
		return nil, err
	}

	p := &Plugin{
		db:      db,
		conf:    conf,
		Credits: invitetracker.NewStore(db),
	}

	common.RegisterPlugin(p)
	return p, nil
}
