package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"RisingStock/internal/model"
	"RisingStock/internal/recorder"
)

// maxFailureLines caps the failure lines listed in one message.
const maxFailureLines = 10

// FormatScreenReport formats the screening result into a Telegram message.
func FormatScreenReport(rows []model.ViewRow, report *model.BatchReport, now time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>Rising Stock 스크리닝</b> | %s\n\n", now.Format("2006-01-02")))
	if len(rows) == 0 {
		b.WriteString("조건을 만족하는 종목이 없습니다.\n")
		writeFailures(&b, report)
		return b.String()
	}

	inst := 0
	for _, r := range rows {
		if r.InstSupport {
			inst++
		}
	}
	b.WriteString(fmt.Sprintf("VCP 후보 %d개 | 기관 수급 %d개\n\n", len(rows), inst))

	for _, r := range rows {
		mark := ""
		if r.InstSupport {
			mark = " ⭐"
		}
		b.WriteString(fmt.Sprintf("• <b>%s</b> %s%s\n", html.EscapeString(r.Symbol), html.EscapeString(r.Name), mark))
		nearHigh := 0.0
		if r.High60 > 0 {
			nearHigh = r.Price / r.High60 * 100
		}
		b.WriteString(fmt.Sprintf("   %s (고점 대비 %.1f%%, 변동성 %.1f%%)\n",
			humanize.CommafWithDigits(r.Price, 2), nearHigh, r.Volatility*100))

		details := []string{fmt.Sprintf("거래량 %.2fx", r.VolumeRatio)}
		if r.VolSpike {
			details[0] += " 🔥"
		}
		if r.Fundamentals != nil {
			details = append(details, fmt.Sprintf("기관 %.0f%%", r.Fundamentals.InstOwn*100))
			if t := r.Turnaround(); t != "" && t != model.TurnaroundUnknown {
				details = append(details, string(t))
			}
			if r.Fundamentals.GoodNews {
				details = append(details, "📰")
			}
		}
		b.WriteString("   " + strings.Join(details, " · ") + "\n")
	}

	writeFailures(&b, report)
	return b.String()
}

// FormatWatchlist formats a watchlist volume analysis.
func FormatWatchlist(rows []model.WatchlistRow, report *model.BatchReport, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>거래량 워치리스트</b> | %s\n\n", now.Format("2006-01-02 15:04")))
	if len(rows) == 0 {
		b.WriteString("표시할 종목이 없습니다.\n")
		writeFailures(&b, report)
		return b.String()
	}

	for _, r := range rows {
		mark := ""
		if r.Qualifies {
			mark = " ✅"
		}
		b.WriteString(fmt.Sprintf("• <b>%s</b> %s%s\n", html.EscapeString(r.Code), html.EscapeString(r.Name), mark))
		b.WriteString(fmt.Sprintf("   %s (%+.2f%%) | 거래량 %s\n", FormatPrice(r.Price, r.Domestic), r.ChangePct, humanize.Comma(int64(r.Volume))))
		b.WriteString(fmt.Sprintf("   3일 대비 %.0f%% · 20일 대비 %.0f%%\n", r.Ratio3, r.Ratio20))
	}

	writeFailures(&b, report)
	return b.String()
}

// FormatRuns formats the recent run history.
func FormatRuns(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "기록된 실행이 없습니다."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>최근 실행</b>\n\n")
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("• %s %s | 대상 %d · 결과 %d · 실패 %d (%s)\n",
			r.StartedAt.Format("01-02 15:04"), r.Kind, r.Universe, r.Results, r.Failures,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Second)))
	}
	return b.String()
}

// FormatPrice renders domestic prices as whole won and others with cents.
func FormatPrice(price float64, domestic bool) string {
	if domestic {
		return humanize.Comma(int64(price + 0.5))
	}
	return humanize.CommafWithDigits(price, 2)
}

func writeFailures(b *strings.Builder, report *model.BatchReport) {
	if report == nil || report.Len() == 0 {
		return
	}
	counts := report.Counts()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s %d", k, counts[model.FailureKind(k)])
	}
	b.WriteString(fmt.Sprintf("\n⚠️ 실패 %d건 (%s)\n", report.Len(), strings.Join(parts, ", ")))

	msgs := report.Messages()
	for i, m := range msgs {
		if i == maxFailureLines {
			b.WriteString(fmt.Sprintf("  … 외 %d건\n", len(msgs)-maxFailureLines))
			break
		}
		b.WriteString("  " + html.EscapeString(m) + "\n")
	}
}
