package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin"

	"droptrack/internal/client"
	"droptrack/internal/core"
)

var (
	server   = kingpin.Flag("server", "API base URL").Envar("DROPTRACK_SERVER").Default("http://localhost:8081").String()
	username = kingpin.Flag("username", "Login username").Envar("DROPTRACK_USERNAME").Default("admin").String()
	password = kingpin.Flag("password", "Login password").Envar("DROPTRACK_PASSWORD").String()

	cmdSave      = kingpin.Command("save", "Create or overwrite one day's record")
	saveDate     = cmdSave.Arg("date", "Day to record (YYYY-MM-DD)").Required().String()
	saveVolume   = cmdSave.Flag("volume", "Trading volume").String()
	saveIncome   = cmdSave.Flag("income", "Income amount").String()
	saveLoss     = cmdSave.Flag("loss", "Loss amount").String()
	saveTrading  = cmdSave.Flag("trading", "Points gained by trading").Int()
	saveConsumed = cmdSave.Flag("consumed", "Points consumed").Int()
	saveBalance  = cmdSave.Flag("balance", "Points balance").Default("2").Int()

	cmdGet  = kingpin.Command("get", "Show one day's record")
	getDate = cmdGet.Arg("date", "Day to show (YYYY-MM-DD)").Required().String()

	cmdRm  = kingpin.Command("rm", "Delete one day's record")
	rmDate = cmdRm.Arg("date", "Day to delete (YYYY-MM-DD)").Required().String()

	cmdMonth   = kingpin.Command("month", "List one month's records")
	monthYear  = cmdMonth.Arg("year", "Year").Required().Int()
	monthMonth = cmdMonth.Arg("month", "Month (1-12)").Required().Int()

	cmdList = kingpin.Command("list", "List every record, newest first")

	cmdExport = kingpin.Command("export", "Download the xlsx workbook")
	exportOut = cmdExport.Flag("out", "Output file").Default("records.xlsx").String()
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	cmd := kingpin.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	c, err := client.New(*server)
	if err != nil {
		log.Fatal(err)
	}
	if err := c.Login(ctx, *username, *password); err != nil {
		log.Fatalf("login: %v", err)
	}

	switch cmd {
	case cmdSave.FullCommand():
		runSave(ctx, c)
	case cmdGet.FullCommand():
		runGet(ctx, c)
	case cmdRm.FullCommand():
		runRm(ctx, c)
	case cmdMonth.FullCommand():
		runMonth(ctx, c)
	case cmdList.FullCommand():
		runList(ctx, c)
	case cmdExport.FullCommand():
		runExport(ctx, c)
	}
}

func runSave(ctx context.Context, c *client.Client) {
	fields := map[string]any{
		"date":            *saveDate,
		"points_trading":  *saveTrading,
		"points_consumed": *saveConsumed,
		"points_balance":  *saveBalance,
	}
	if *saveVolume != "" {
		fields["volume"] = *saveVolume
	}
	if *saveIncome != "" {
		fields["income"] = *saveIncome
	}
	if *saveLoss != "" {
		fields["loss"] = *saveLoss
	}

	record, err := c.SaveRecord(ctx, fields)
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	printRecord(record)
}

func runGet(ctx context.Context, c *client.Client) {
	d, err := core.ParseDate(*getDate)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	record, err := c.Record(ctx, d)
	if err != nil {
		log.Fatalf("get: %v", err)
	}
	if record == nil {
		fmt.Printf("%s: no record\n", d)
		return
	}
	printRecord(*record)
}

func runRm(ctx context.Context, c *client.Client) {
	d, err := core.ParseDate(*rmDate)
	if err != nil {
		log.Fatalf("rm: %v", err)
	}
	if err := c.DeleteRecord(ctx, d); err != nil {
		log.Fatalf("rm: %v", err)
	}
	fmt.Printf("%s: deleted\n", d)
}

func runMonth(ctx context.Context, c *client.Client) {
	records, err := c.FetchMonth(ctx, *monthYear, *monthMonth)
	if err != nil {
		log.Fatalf("month: %v", err)
	}
	printTable(records)
}

func runList(ctx context.Context, c *client.Client) {
	records, err := c.Records(ctx)
	if err != nil {
		log.Fatalf("list: %v", err)
	}
	printTable(records)
}

func runExport(ctx context.Context, c *client.Client) {
	data, err := c.Export(ctx)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	if err := os.WriteFile(*exportOut, data, 0644); err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", *exportOut, len(data))
}

func printRecord(r core.DailyRecord) {
	fmt.Printf("date:            %s\n", r.Date)
	fmt.Printf("volume:          %s\n", r.Volume)
	fmt.Printf("income:          %s\n", r.Income)
	fmt.Printf("loss:            %s\n", r.Loss)
	fmt.Printf("points balance:  %d\n", r.PointsBalance)
	fmt.Printf("points trading:  %d\n", r.PointsTrading)
	fmt.Printf("points consumed: %d\n", r.PointsConsumed)
	fmt.Printf("net points:      %d\n", r.NetPoints)
}

func printTable(records []core.DailyRecord) {
	if len(records) == 0 {
		fmt.Println("no records")
		return
	}
	fmt.Printf("%-12s %12s %12s %12s %6s\n", "DATE", "VOLUME", "INCOME", "LOSS", "NET")
	for _, r := range records {
		fmt.Printf("%-12s %12s %12s %12s %6s\n",
			r.Date, r.Volume, r.Income, r.Loss, strconv.Itoa(r.NetPoints))
	}
}
