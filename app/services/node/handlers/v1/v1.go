// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/chasenode/app/services/node/handlers/v1/private"
	"github.com/ardanlabs/chasenode/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/chasenode/business/web/mid"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chaser"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/genesis"
	"github.com/ardanlabs/chasenode/foundation/blockchain/organizer"
	"github.com/ardanlabs/chasenode/foundation/blockchain/peer"
	"github.com/ardanlabs/chasenode/foundation/events"
	"github.com/ardanlabs/chasenode/foundation/gate"
	"github.com/ardanlabs/chasenode/foundation/nameservice"
	"github.com/ardanlabs/chasenode/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log       *zap.SugaredLogger
	Genesis   genesis.Genesis
	Bus       *chase.Bus
	DB        *database.Database
	Tx        *chaser.Transaction
	Template  *chaser.Template
	Storage   *chaser.Storage
	Organizer *organizer.Organizer
	Gate      *gate.Gate
	Evts      *events.Events
	NS        *nameservice.NameService
	Peers     *peer.PeerSet
	Host      string
	Relay     bool
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:     cfg.Log,
		Genesis: cfg.Genesis,
		Tx:      cfg.Tx,
		Tmpl:    cfg.Template,
		NS:      cfg.NS,
		WS:      websocket.Upgrader{},
		Evts:    cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.GenesisInfo)
	app.Handle(http.MethodGet, version, "/template", pbl.Template)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list/:account", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction, mid.Gate(cfg.Gate))
}

// PrivateRoutes binds all the version 1 private routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:       cfg.Log,
		Bus:       cfg.Bus,
		DB:        cfg.DB,
		Tx:        cfg.Tx,
		Storage:   cfg.Storage,
		Organizer: cfg.Organizer,
		Gate:      cfg.Gate,
		Peers:     cfg.Peers,
		Host:      cfg.Host,
		ChainID:   cfg.Genesis.ChainID,
	}

	app.Handle(http.MethodGet, version, "/node/status", prv.Status)
	app.Handle(http.MethodPost, version, "/node/block/next", prv.ProposeBlock, mid.Gate(cfg.Gate))

	if cfg.Relay {
		app.Handle(http.MethodPost, version, "/node/tx/add", prv.SubmitNodeTransaction, mid.Gate(cfg.Gate))
	}
}
