// Package main implements tenantctl, an operator CLI that drives the tenant
// lifecycle orchestrators directly against the database and storage backend,
// without going through the HTTP API. Useful for break-glass operations and
// scripted migrations.
//
// Usage:
//
//	tenantctl provision -org "Acme Pty Ltd" -email admin@acme.test [-trial] [-admin-email x] [-admin-password y]
//	tenantctl get -tenant <id>
//	tenantctl delete -tenant <id> [-immediate] [-force] [-actor name]
//	tenantctl soft-delete -tenant <id> [-actor name]
//	tenantctl sweep
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/atriumhq/atrium/internal/config"
	"github.com/atriumhq/atrium/internal/db"
	"github.com/atriumhq/atrium/internal/db/repositories"
	"github.com/atriumhq/atrium/internal/jobs"
	"github.com/atriumhq/atrium/internal/storage"
	"github.com/atriumhq/atrium/internal/telemetry"
	"github.com/atriumhq/atrium/internal/tenancy"

	_ "github.com/atriumhq/atrium/internal/storage/local"
	_ "github.com/atriumhq/atrium/internal/storage/s3"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tenantctl <provision|get|delete|soft-delete|sweep> [flags]")
}

type env struct {
	cfg     *config.Config
	store   *repositories.Store
	buckets storage.TenantStore
	close   func()
}

func setup() (*env, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	buckets, err := storage.New(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	return &env{
		cfg:     cfg,
		store:   repositories.NewStore(database),
		buckets: buckets,
		close:   func() { database.Close() },
	}, nil
}

func run(command string, args []string) error {
	switch command {
	case "provision":
		return provisionCmd(args)
	case "get":
		return getCmd(args)
	case "delete":
		return deleteCmd(args)
	case "soft-delete":
		return softDeleteCmd(args)
	case "sweep":
		return sweepCmd(args)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func provisionCmd(args []string) error {
	fs := flag.NewFlagSet("provision", flag.ExitOnError)
	org := fs.String("org", "", "organization name (required)")
	email := fs.String("email", "", "organization contact email")
	phone := fs.String("phone", "", "organization contact phone")
	planID := fs.String("plan", "", "plan ID (defaults to the default plan)")
	trial := fs.Bool("trial", false, "provision as a trial tenant")
	adminName := fs.String("admin-name", "", "initial admin user name")
	adminEmail := fs.String("admin-email", "", "initial admin user email")
	adminPassword := fs.String("admin-password", "", "initial admin user password")
	noBucket := fs.Bool("no-bucket", false, "skip bucket creation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	opts := tenancy.DefaultProvisionOptions()
	if *noBucket {
		opts.CreateBucket = false
	}

	input := tenancy.ProvisionInput{
		OrganizationName: *org,
		ContactEmail:     *email,
		Phone:            *phone,
		IsTrial:          *trial,
		AdminName:        *adminName,
		AdminEmail:       *adminEmail,
		AdminPassword:    *adminPassword,
	}
	if *planID != "" {
		input.PlanID = planID
	}

	provisioner := tenancy.NewProvisioner(e.store, e.buckets, nil, tenancy.Capabilities{}, e.cfg.Provisioning.BucketPrefix)
	result, err := provisioner.ProvisionTenant(context.Background(), input, opts)
	if err != nil {
		if result != nil {
			printJSON(result.Steps)
		}
		return err
	}

	fmt.Printf("Provisioned tenant %s (%s)\n", result.Tenant.ID, result.Tenant.Name)
	printJSON(result.Steps)
	return nil
}

func getCmd(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenantID == "" {
		return fmt.Errorf("-tenant is required")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	tenant, err := e.store.GetTenantByID(context.Background(), *tenantID)
	if err != nil {
		return err
	}
	if tenant == nil {
		return tenancy.ErrTenantNotFound
	}
	printJSON(tenant)
	return nil
}

func deleteCmd(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	immediate := fs.Bool("immediate", false, "delete the bucket now instead of scheduling expiry")
	force := fs.Bool("force", false, "bypass the active-user check")
	keepStorage := fs.Bool("keep-storage", false, "leave the bucket untouched")
	actor := fs.String("actor", "tenantctl", "actor recorded in the audit trail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenantID == "" {
		return fmt.Errorf("-tenant is required")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	opts := tenancy.DefaultDeleteOptions()
	opts.ImmediateStorageDelete = *immediate
	opts.ForceDelete = *force
	opts.DeleteStorage = !*keepStorage
	opts.RetentionDays = int32(e.cfg.Deletion.RetentionDays)
	opts.Actor = *actor

	deleter := tenancy.NewDeleter(e.store, e.buckets, nil, int32(e.cfg.Deletion.RetentionDays))
	result, err := deleter.DeleteTenantCompletely(context.Background(), *tenantID, opts)
	if result != nil {
		printJSON(result)
	}
	return err
}

func softDeleteCmd(args []string) error {
	fs := flag.NewFlagSet("soft-delete", flag.ExitOnError)
	tenantID := fs.String("tenant", "", "tenant ID (required)")
	actor := fs.String("actor", "tenantctl", "actor recorded in the audit trail")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tenantID == "" {
		return fmt.Errorf("-tenant is required")
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	deleter := tenancy.NewDeleter(e.store, e.buckets, nil, int32(e.cfg.Deletion.RetentionDays))
	tenant, err := deleter.SoftDeleteTenant(context.Background(), *tenantID, tenancy.SoftDeleteOptions{Actor: *actor})
	if err != nil {
		return err
	}
	printJSON(tenant)
	return nil
}

func sweepCmd(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	sweeper := jobs.NewDeletionSweeper(e.buckets, e.store, e.cfg.Provisioning.BucketPrefix, e.cfg.Jobs.Sweeper.IntervalHours)
	sweeper.Sweep(context.Background())
	fmt.Println("Sweep completed")
	return nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(data))
}
