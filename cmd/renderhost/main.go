// Command renderhost is the headless-browser process the Render Bridge
// delegates to. It accepts a websocket connection per render job,
// navigates with chromedp, and replies with the rendered HTML. Grounded
// on the teacher's tools/crawler/chromedp_crawler.go Navigate/WaitReady/
// OuterHTML sequence.
package main

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	jsoniter "github.com/json-iterator/go"

	"skhoot/internal/core/logging"
	"skhoot/internal/render"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	addr := flag.String("addr", "127.0.0.1:8901", "listen address")
	flag.Parse()

	log := logging.New("renderhost")

	browserCtx, cancelBrowser := chromedp.NewContext(context.Background())
	defer cancelBrowser()
	if err := chromedp.Run(browserCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start headless browser")
	}

	http.HandleFunc("/render", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			log.Error().Err(err).Msg("upgrade failed")
			return
		}
		defer conn.Close()

		msg, _, err := wsutil.ReadClientData(conn)
		if err != nil {
			log.Error().Err(err).Msg("read job failed")
			return
		}

		var job render.Job
		if err := json.Unmarshal(msg, &job); err != nil {
			log.Error().Err(err).Msg("decode job failed")
			return
		}

		result := runJob(browserCtx, job)
		payload, err := json.Marshal(result)
		if err != nil {
			log.Error().Err(err).Msg("encode result failed")
			return
		}
		if err := wsutil.WriteServerMessage(conn, ws.OpText, payload); err != nil {
			log.Error().Err(err).Msg("write result failed")
		}
	})

	log.Info().Str("addr", *addr).Msg("render host listening")
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal().Err(err).Msg("listen failed")
	}
}

func runJob(browserCtx context.Context, job render.Job) render.Result {
	start := time.Now()
	timeout := time.Duration(job.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	ctx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	var html string
	var finalURL string
	err := chromedp.Run(ctx,
		chromedp.Navigate(job.URL),
		waitFor(job.WaitMode),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	result := render.Result{
		JobID:     job.JobID,
		FinalURL:  finalURL,
		HTML:      html,
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		result.Err = err.Error()
	}
	return result
}

func waitFor(mode render.WaitMode) chromedp.Action {
	switch mode {
	case render.WaitNetworkIdle:
		return chromedp.WaitReady("body", chromedp.ByQuery)
	case render.WaitLoad:
		return chromedp.WaitVisible("body", chromedp.ByQuery)
	default: // DomContentLoaded and unrecognized modes
		return chromedp.WaitReady("body", chromedp.ByQuery)
	}
}
