package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opinionbot/gotrader/internal/ports"
)

const defaultBarWidth = 30

var (
	barFilledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // 绿
	barEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")) // 灰
	prefixStyle    = lipgloss.NewStyle().Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")) // 红
	remarkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // 橙
)

// ConsoleSink 终端进度上报。单行原地刷新的进度条，批次完成后换行；
// 所有写入都是 fire-and-forget，不会阻塞调度。
type ConsoleSink struct {
	out      io.Writer
	barWidth int
}

// NewConsoleSink 创建标准输出的进度上报
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{out: os.Stdout, barWidth: defaultBarWidth}
}

// NewConsoleSinkTo 创建写到指定 writer 的进度上报（测试用）
func NewConsoleSinkTo(w io.Writer) *ConsoleSink {
	return &ConsoleSink{out: w, barWidth: defaultBarWidth}
}

// Progress 渲染进度条: prefix [███░░░] 66% (2/3) suffix
func (s *ConsoleSink) Progress(current, total int, prefix, suffix string) {
	percent := 100.0
	filled := s.barWidth
	if total > 0 {
		percent = float64(current) / float64(total) * 100
		filled = s.barWidth * current / total
	}
	if filled > s.barWidth {
		filled = s.barWidth
	}

	bar := barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", s.barWidth-filled))

	fmt.Fprintf(s.out, "\r%s [%s] %.0f%% (%d/%d) %s",
		prefixStyle.Render(prefix), bar, percent, current, total, suffix)

	if current >= total {
		fmt.Fprintln(s.out)
	}
}

// ReportAccountErrors 批次完成后汇总展示账户级错误
func (s *ConsoleSink) ReportAccountErrors(errs []ports.AccountError) {
	for _, e := range errs {
		fmt.Fprintf(s.out, "  %s [%s] 异常: %s\n",
			errorStyle.Render("[!]"), remarkStyle.Render(e.Remark), e.Message)
	}
}
