package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/rokoko-bridge/internal/pad"
	"github.com/sweeney/rokoko-bridge/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"actionLabel": func(a string) string {
		switch a {
		case "CALIBRATE":
			return "Calibrate"
		case "START_RECORDING":
			return "Start recording"
		case "STOP_RECORDING":
			return "Stop recording"
		}
		return a
	},
	"buttonName": func(n int) string {
		if n >= 0 && n <= 3 {
			return fmt.Sprintf("%s (%d)", pad.ButtonName(n), n)
		}
		return pad.ButtonName(n)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Rokoko Bridge</title>
<style>
body { font-family: monospace; max-width: 700px; margin: 2em auto; padding: 0 1em;
       background: #1a1b26; color: #c0caf5; }
h1 { font-size: 1.4em; }
h2 { font-size: 1.1em; color: #7aa2f7; }
.card { background: #24283b; border: 1px solid #414868; border-radius: 6px;
        padding: 0.5em 1em; margin: 1em 0; }
table { border-collapse: collapse; width: 100%; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #414868; }
tr:last-child td, tr:last-child th { border-bottom: none; }
th { width: 40%; font-weight: normal; color: #565f89; }
.ok { color: #9ece6a; }
.err { color: #f7768e; }
.pending { color: #e0af68; }
.idle { color: #565f89; }
.dot { display: inline-block; width: 9px; height: 9px; border-radius: 50%;
       margin-right: 8px; vertical-align: middle; background: #565f89; }
.dot.ok { background: #9ece6a; }
.dot.err { background: #f7768e; }
.dot.pending { background: #e0af68; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%;
            margin-left: 8px; vertical-align: middle; background: #e0af68; }
.live-dot.ok { background: #9ece6a; }
.live-dot.err { background: #f7768e; }
#log { height: 16em; overflow-y: auto; font-size: 0.85em; padding: 0.5em;
       background: #1a1b26; border: 1px solid #414868; border-radius: 4px; }
#log .line { padding: 1px 0; white-space: pre-wrap; }
#log .sev-info { color: #c0caf5; }
#log .sev-success { color: #9ece6a; }
#log .sev-error { color: #f7768e; }
#log .ts { color: #565f89; }
</style>
</head>
<body>
<h1>Rokoko Bridge<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<div class="card">
<table>
<tr><th>Controller</th><td><span id="controller-dot" class="dot {{if .Controller}}ok{{else}}pending{{end}}"></span><span id="controller-text" class="{{if .Controller}}ok{{else}}pending{{end}}">{{if .Controller}}{{.ControllerName}}{{else}}Searching&hellip;{{end}}</span></td></tr>
<tr><th>Rokoko Studio</th><td><span id="studio-dot" class="dot {{if not .Checked}}pending{{else if .Reachable}}ok{{else}}err{{end}}"></span><span id="studio-text" class="{{if not .Checked}}pending{{else if .Reachable}}ok{{else}}err{{end}}">{{if not .Checked}}Checking&hellip;{{else if .Reachable}}Connected{{else}}Not reachable{{end}}</span></td></tr>
<tr><th>Recording</th><td><span id="rec-dot" class="dot {{if .Recording}}err{{end}}"></span><span id="rec-text" class="{{if .Recording}}err{{else}}idle{{end}}">{{if .Recording}}Recording{{else}}Idle{{end}}</span></td></tr>
</table>
</div>

<h2>Buttons</h2>
<div class="card">
<table>
{{range .Settings.Mapping}}<tr><th>{{buttonName .Button}}</th><td>{{actionLabel (printf "%s" .Action)}}</td></tr>
{{end}}</table>
</div>

<h2>Activity</h2>
<div id="log"></div>

<h2>Dispatches</h2>
<div class="card">
<table>
<tr><th></th><td>sent</td><td>ok</td><td>rejected</td><td>unreachable</td></tr>
<tr><th>Calibrate</th><td>{{.Counts.Calibrate.Dispatched}}</td><td>{{.Counts.Calibrate.Succeeded}}</td><td>{{.Counts.Calibrate.Rejected}}</td><td>{{.Counts.Calibrate.Unreachable}}</td></tr>
<tr><th>Start recording</th><td>{{.Counts.Start.Dispatched}}</td><td>{{.Counts.Start.Succeeded}}</td><td>{{.Counts.Start.Rejected}}</td><td>{{.Counts.Start.Unreachable}}</td></tr>
<tr><th>Stop recording</th><td>{{.Counts.Stop.Dispatched}}</td><td>{{.Counts.Stop.Succeeded}}</td><td>{{.Counts.Stop.Rejected}}</td><td>{{.Counts.Stop.Unreachable}}</td></tr>
</table>
</div>

<h2>System</h2>
<div class="card">
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Studio</th><td>{{.Settings.StudioAddr}}</td></tr>
<tr><th>Debounce</th><td>{{.Settings.DebounceMs}}ms</td></tr>
<tr><th>Probe</th><td>{{.Settings.ProbeMs}}ms</td></tr>
<tr><th>Poll</th><td>{{.Settings.PollMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Settings.HTTPAddr}}</td></tr>
{{if .Settings.Broker}}<tr><th>MQTT</th><td>{{.Settings.Broker}}</td></tr>
{{end}}</table>
</div>

<p><a href="/index.json" style="color:#7aa2f7">JSON</a></p>

<script>
(function() {
  var liveDot = document.getElementById("live-dot");
  var logEl = document.getElementById("log");
  var maxLines = 500;

  var dots = {
    controller: document.getElementById("controller-dot"),
    connectivity: document.getElementById("studio-dot"),
    recording: document.getElementById("rec-dot")
  };
  var texts = {
    controller: document.getElementById("controller-text"),
    connectivity: document.getElementById("studio-text"),
    recording: document.getElementById("rec-text")
  };

  function setIndicator(channel, cls, text) {
    dots[channel].className = "dot " + cls;
    texts[channel].className = cls;
    texts[channel].textContent = text;
  }

  function applyStatus(msg) {
    if (msg.channel === "controller") {
      if (msg.active) {
        setIndicator("controller", "ok", msg.detail || "Connected");
      } else {
        setIndicator("controller", "pending", "Searching…");
      }
    } else if (msg.channel === "connectivity") {
      if (msg.active) {
        setIndicator("connectivity", "ok", "Connected");
      } else {
        setIndicator("connectivity", "err", "Not reachable");
      }
    } else if (msg.channel === "recording") {
      if (msg.active) {
        setIndicator("recording", "err", "Recording");
      } else {
        dots.recording.className = "dot";
        texts.recording.className = "idle";
        texts.recording.textContent = "Idle";
      }
    }
  }

  function appendLog(msg) {
    var line = document.createElement("div");
    line.className = "line sev-" + (msg.severity || "info");
    var ts = document.createElement("span");
    ts.className = "ts";
    ts.textContent = new Date(msg.time).toLocaleTimeString() + "  ";
    line.appendChild(ts);
    line.appendChild(document.createTextNode(msg.text));
    var stick = logEl.scrollTop + logEl.clientHeight >= logEl.scrollHeight - 4;
    logEl.appendChild(line);
    while (logEl.childNodes.length > maxLines) {
      logEl.removeChild(logEl.firstChild);
    }
    if (stick) {
      logEl.scrollTop = logEl.scrollHeight;
    }
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() {
      liveDot.className = "live-dot ok";
      liveDot.title = "live";
    };

    ws.onclose = function() {
      liveDot.className = "live-dot err";
      liveDot.title = "disconnected";
      setTimeout(connect, 3000);
    };

    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.kind === "status") {
          applyStatus(msg);
        } else if (msg.kind === "log") {
          appendLog(msg);
        }
      } catch (e) {}
    };
  }

  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
