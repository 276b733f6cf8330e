package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"Bt1Stream/core/audio"
	"Bt1Stream/core/player"
	"Bt1Stream/logger"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	playBaseURL string
	playRepeat  string
	playShuffle bool
)

var playCmd = &cobra.Command{
	Use:   "play <songID>...",
	Short: "在终端播放歌曲",
	Long: `从服务端解析歌曲并通过本机声卡播放。播放时从标准输入读取命令：
  p 暂停/继续   n 下一首   b 上一首   s <秒> 跳转   v <0..1> 音量
  a <歌曲ID> 加入队列   j <序号> 跳到队列位置
  r none|one|all 循环模式   z 随机   w 电平   i 状态   q 退出`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !audio.Available {
			return errors.New("当前构建不支持音频输出，需要启用 cgo")
		}
		ids, err := parseSongIDs(args)
		if err != nil {
			return err
		}
		repeat, err := player.ParseRepeatMode(playRepeat)
		if err != nil {
			return err
		}

		baseURL := lo.CoalesceOrEmpty(playBaseURL, cfg.PlayerBaseURL)
		resolver, err := player.NewHTTPResolver(baseURL, nil)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		tracks, err := resolver.ResolveQueue(ctx, ids)
		cancel()
		if err != nil {
			return fmt.Errorf("解析歌曲失败: %w", err)
		}

		out := cmd.OutOrStdout()
		session := player.NewSession(newRendererMedia,
			player.WithVolume(cfg.PlayerVolume),
			player.WithRepeat(repeat),
			player.WithStateListener(newStatusPrinter(out)))
		defer session.Close()
		if playShuffle {
			session.SetShuffle(true)
		}

		if err := session.LoadTrack(tracks[0], player.WithQueue(tracks)); err != nil {
			return err
		}
		return runConsole(cmd.Context(), session, resolver, cmd.InOrStdin(), out)
	},
}

func newRendererMedia() (player.Media, error) {
	r, err := audio.NewRenderer(nil)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func parseSongIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("无效的歌曲ID: %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// newStatusPrinter prints a line whenever the status or the current track changes.
func newStatusPrinter(out io.Writer) func(player.State) {
	var mu sync.Mutex
	lastStatus, lastIndex := player.StatusIdle, -1
	return func(st player.State) {
		mu.Lock()
		defer mu.Unlock()
		if st.Status == lastStatus && st.CurrentIndex == lastIndex {
			return
		}
		lastStatus, lastIndex = st.Status, st.CurrentIndex
		fmt.Fprintln(out, describe(st))
	}
}

func describe(st player.State) string {
	t, ok := st.Current()
	if !ok {
		return fmt.Sprintf("[%s]", st.Status)
	}
	line := fmt.Sprintf("[%s] %d/%d %s", st.Status, st.CurrentIndex+1, len(st.Queue), t.Title)
	if t.Artist != "" {
		line += " - " + t.Artist
	}
	if st.DurationSec > 0 {
		line += fmt.Sprintf(" (%s/%s)", clock(st.PositionSec), clock(st.DurationSec))
	}
	if st.Err != nil {
		line += ": " + st.Err.Error()
	}
	return line
}

func clock(sec float64) string {
	s := int(sec)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

type trackResolver interface {
	ResolveTrack(ctx context.Context, id int64) (player.Track, error)
}

// runConsole reads commands until q, EOF, a signal or ctx ends.
func runConsole(ctx context.Context, s *player.Session, r trackResolver, in io.Reader, out io.Writer) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sig:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := runCommand(ctx, s, r, line, out)
			if err != nil {
				fmt.Fprintln(out, "错误:", err)
				logger.Debug("播放命令失败", logger.String("command", line), logger.ErrorField(err))
			}
			if quit {
				return nil
			}
		}
	}
}

var errUsage = errors.New("未知命令，可用: p n b s v a j r z w i q")

func runCommand(ctx context.Context, s *player.Session, r trackResolver, line string, out io.Writer) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "p":
		return false, s.TogglePlay()
	case "n":
		return false, s.Next()
	case "b":
		return false, s.Previous()
	case "s":
		sec, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return false, fmt.Errorf("用法: s <秒>")
		}
		return false, s.SeekTo(sec)
	case "v":
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return false, fmt.Errorf("用法: v <0..1>")
		}
		s.SetVolume(v)
		fmt.Fprintf(out, "音量 %.2f\n", s.State().Volume)
	case "a":
		ids, err := parseSongIDs([]string{arg})
		if err != nil {
			return false, err
		}
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		track, err := r.ResolveTrack(ctx, ids[0])
		if err != nil {
			return false, fmt.Errorf("解析歌曲失败: %w", err)
		}
		if err := s.Enqueue(track); err != nil {
			return false, err
		}
		fmt.Fprintf(out, "已加入队列: %s (%d)\n", track.Title, len(s.State().Queue))
	case "j":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, fmt.Errorf("用法: j <序号>")
		}
		return false, s.PlayAtIndex(n - 1)
	case "r":
		mode, err := player.ParseRepeatMode(arg)
		if err != nil {
			return false, err
		}
		s.SetRepeat(mode)
		fmt.Fprintf(out, "循环 %s\n", mode)
	case "z":
		s.ToggleShuffle()
		fmt.Fprintf(out, "随机 %s\n", lo.Ternary(s.State().Shuffle, "开", "关"))
	case "w":
		fmt.Fprintln(out, levelMeter(s.Analyser()))
	case "i":
		fmt.Fprintln(out, describe(s.State()))
	case "q":
		return true, nil
	default:
		return false, errUsage
	}
	return false, nil
}

// levelMeter renders the RMS of the analysis window as a bar.
func levelMeter(a player.Analyser) string {
	if a == nil {
		return "无可用电平"
	}
	samples := a.Samples(audio.DefaultTapSize)
	if len(samples) == 0 {
		return "无可用电平"
	}
	rms := math.Sqrt(lo.SumBy(samples, func(v float64) float64 { return v * v }) / float64(len(samples)))
	const width = 40
	n := lo.Clamp(int(math.Round(rms*width)), 0, width)
	return fmt.Sprintf("|%s%s| %.3f", strings.Repeat("#", n), strings.Repeat(" ", width-n), rms)
}

func init() {
	playCmd.Flags().StringVar(&playBaseURL, "server", "", "服务地址，覆盖 PLAYER_BASE_URL")
	playCmd.Flags().StringVar(&playRepeat, "repeat", "none", "循环模式: none, one, all")
	playCmd.Flags().BoolVar(&playShuffle, "shuffle", false, "随机播放")
	rootCmd.AddCommand(playCmd)
}
