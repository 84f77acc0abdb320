// Command server runs the share-places HTTP API.
//
// Settings come from defaults, the environment (and a .env file), an optional
// JSON file given with -c, and flags. DATABASE_DSN=memory runs without
// PostgreSQL.
package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/shareplaces/internal/server"
	"github.com/dmitrijs2005/shareplaces/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		// the structured logger is built inside NewApp
		log.Printf("shareplaces: startup failed: %v", err)
		return
	}

	app.Run(ctx)
}
