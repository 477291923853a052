package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"streetview-randomizer/internal/logger"
	"streetview-randomizer/internal/migrate"
	"streetview-randomizer/internal/store"
	"streetview-randomizer/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// 文档注释：运行记录查询
// 背景：采样开启 RECORD_DB 后每个样本写入 _sv_samples；此工具按国家汇总历史样本并列出最近运行。
// 约束：只读；表不存在时先建表，空库输出空表。返回退出码，保证连接与超时在退出前释放。
func run(args []string, stdout io.Writer) int {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	fs := flag.NewFlagSet("run-history", flag.ContinueOnError)
	days := fs.Int("days", 0, "only include samples from the last N days (0 for all)")
	runs := fs.Int("runs", 10, "number of recent runs to list")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		return 1
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		return 1
	}
	st := store.AttachDB(db)

	var since time.Time
	if *days > 0 {
		since = time.Now().AddDate(0, 0, -*days)
	}
	totals, err := st.CountryTotals(ctx, since)
	if err != nil {
		l.Error("history_totals_error", "err", err)
		return 1
	}
	recent, err := st.RecentRuns(ctx, *runs)
	if err != nil {
		l.Error("history_runs_error", "err", err)
		return 1
	}

	printTotals(stdout, totals)
	fmt.Fprintln(stdout)
	printRuns(stdout, recent)
	l.Debug("history_done", "countries", len(totals), "runs", len(recent))
	return 0
}

func printTotals(w io.Writer, totals []store.CountryTotal) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ISO3\tNAME\tSAMPLES\tIMAGES\tAVG ATTEMPTS")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f\n", t.Code, t.Name, t.Samples, t.Images, t.AvgAttempts)
	}
	_ = tw.Flush()
}

func printRuns(w io.Writer, recent []store.RunSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSAMPLES\tATTEMPTS")
	for _, r := range recent {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", r.RunID, r.Started.Format(time.RFC3339), r.Samples, r.Attempts)
	}
	_ = tw.Flush()
}
