package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/irantownhall/townhallbot/bot"
	"github.com/irantownhall/townhallbot/common"
	"github.com/irantownhall/townhallbot/giveaway"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func init() {
	//nolint:errcheck
	godotenv.Load()
}

func main() {
	app := &cli.App{
		Name:  "townhallbot",
		Usage: "discord giveaway and invite tracking bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config/settings.json",
				Usage:   "path to the json config, missing files are ignored",
				EnvVars: []string{"TOWNHALL_CONFIG"},
			},
		},
		Action: run,
		Commands: []*cli.Command{
			commandRun(),
			commandMigrate(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("townhallbot failed")
	}
}

func commandRun() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "connect to discord and run the bot (default)",
		Action: run,
	}
}

func commandMigrate() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create the database tables and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Value: common.ConfDefaults["database.giveaway"].(string),
				Usage: "path to the giveaway database",
			},
		},
		Action: func(c *cli.Context) error {
			db, err := giveaway.InitDatabase(c.String("db"))
			if err != nil {
				return err
			}

			logrus.WithField("path", c.String("db")).Info("Database is up to date")
			return db.Close()
		},
	}
}

func run(c *cli.Context) error {
	conf, err := common.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}

	err = common.SetupLogging(conf)
	if err != nil {
		return err
	}

	err = common.SetupMetrics(conf)
	if err != nil {
		return err
	}
	defer common.Statsd.Close()

	err = bot.Setup(conf)
	if err != nil {
		return err
	}

	_, err = giveaway.RegisterPlugin(conf)
	if err != nil {
		return err
	}

	err = bot.Run(conf)
	if err != nil {
		bot.Stop()
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig

	logrus.WithField("signal", s.String()).Info("Shutting down")
	bot.Stop()
	return nil
}
