package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"bitbucket.org/tastebringers/backend/api"
	"bitbucket.org/tastebringers/backend/db"
	"bitbucket.org/tastebringers/backend/helpers"
	"bitbucket.org/tastebringers/backend/server"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

// @title backend API
// @version 0.1
// @description Payments and settlement tickets for restaurant orders.

// @host api.tastebringers.mx
// @BasePath /
// @schemes http https

// @securityDefinitions.apiKey ApiKeyAuth
// @in header
// @name Authorization

func main() {
	_ = godotenv.Load("dev.env")

	app := cli.NewApp()
	app.Name = "Taste Bringers Payments"
	app.Usage = "order payments and settlement tickets"
	app.Version = "1.00"
	app.Compiled = time.Now()
	app.Commands = []cli.Command{
		{
			Name:  "backend-up",
			Usage: "This command starts the backend service",
			Action: func(c *cli.Context) error {
				StartServer(api.GetRoutes())
				return nil
			},
		},
		{
			Name:  "migrate",
			Usage: "Creates the tables the service needs",
			Action: func(c *cli.Context) error {
				ctx := server.GetAppContext()
				ctx.CreateSQLConnection()
				defer ctx.Context.SQLConn.Close()

				if err := ctx.Context.DB.Migrate(context.Background()); err != nil {
					return err
				}
				log.WithField("driver", ctx.Context.Config.SQL.Driver).Info("schema applied")
				return nil
			},
		},
		{
			Name:  "token",
			Usage: "Signs a staff token for the ticket administration endpoints",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "id", Usage: "staff member id", Value: 1},
				cli.StringFlag{Name: "email", Usage: "staff member e-mail"},
				cli.BoolFlag{Name: "admin", Usage: "grant the admin role"},
				cli.BoolFlag{Name: "cashier", Usage: "grant the cashier role"},
				cli.DurationFlag{Name: "ttl", Usage: "token lifetime, 0 for no expiry", Value: 12 * time.Hour},
			},
			Action: func(c *cli.Context) error {
				var roles []int
				if c.Bool("admin") {
					roles = append(roles, db.ConstRoles.Admin)
				}
				if c.Bool("cashier") {
					roles = append(roles, db.ConstRoles.Cashier)
				}
				if len(roles) == 0 {
					return cli.NewExitError("at least one of --admin or --cashier is required", 1)
				}

				secret := os.Getenv("JWT_SECRET")
				if secret == "" {
					return cli.NewExitError("JWT_SECRET is not set", 1)
				}

				token, err := helpers.GenerateToken(c.Int("id"), c.String("email"), roles, secret, c.Duration("ttl"))
				if err != nil {
					return err
				}
				fmt.Println(token)
				return nil
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func StartServer(routes []*server.Route) {
	ctx := server.GetAppContext()
	ctx.CreateSQLConnection()
	ctx.CreateLedger()
	ctx.CreateSMTPConnection()
	ctx.CreateNewSessionS3()

	server.UpServer(routes, ctx)
}
