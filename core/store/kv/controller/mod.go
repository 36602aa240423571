// Package controller implements the initializer of the database of the node.
package controller

import (
	"path/filepath"

	"go.dedis.ch/lottery"
	"go.dedis.ch/lottery/cli"
	"go.dedis.ch/lottery/cli/node"
	"go.dedis.ch/lottery/core/store/kv"
	"golang.org/x/xerrors"
)

// DBFile is the name of the database file in the configuration folder.
const DBFile = "lottery.db"

// dbController opens the database of the node and closes it on shutdown.
//
// - implements node.Initializer
type dbController struct{}

// NewController creates a new initializer for the database.
func NewController() node.Initializer {
	return dbController{}
}

// SetCommands implements node.Initializer. It declares the lock timeout of the
// database file.
func (dbController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(
		cli.DurationFlag{
			Name:  "db-timeout",
			Usage: "maximum wait for the lock of the database file",
			Value: kv.DefaultTimeout,
		},
	)
}

// OnStart implements node.Initializer. It opens the database and injects it.
func (dbController) OnStart(flags cli.Flags, inj node.Injector) error {
	path := filepath.Join(flags.Path("config"), DBFile)

	db, err := kv.New(path, kv.WithTimeout(flags.Duration("db-timeout")))
	if err != nil {
		return xerrors.Errorf("db: %v", err)
	}

	lottery.Logger.Debug().Str("path", path).Msg("database opened")

	inj.Inject(db)

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (dbController) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing db: %v", err)
	}

	return nil
}
