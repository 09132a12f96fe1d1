// interceptors.go — Registry of transparent in-page observation wrappers.
// Each interceptor is a named JavaScript binding installed into the target
// runtime before the page's first script runs (and into every later frame).
// Contract: a wrapper swallows its own failures locally and always forwards
// the original call with unchanged arguments and return value. Interceptors
// observe; they never gate or transform page behavior.
package capture

import "strings"

// BufferGlobal is the in-page shared capture buffer. It is append-only for
// the life of the session and read from Go only via snapshot round trips.
const BufferGlobal = "__aetheriaCapture"

// Interceptor is one named {target primitive, wrapper} binding.
type Interceptor struct {
	Name string
	JS   string
}

// bucketJS bootstraps the shared buffer. Idempotent so re-injection into an
// already-instrumented frame is harmless.
const bucketJS = `
window.` + BufferGlobal + ` = window.` + BufferGlobal + ` || { json: [], charts: [], canvasText: [], storage: { local: {}, session: {} } };
`

// fetchJS wraps the async network primitive. JSON responses are cloned and
// decoded off the caller's path; non-JSON bodies containing a balanced brace
// pair get a speculative decode. The response handed back to the caller is
// never altered or delayed.
const fetchJS = `
(() => {
  const _fetch = window.fetch;
  if (!_fetch) return;
  window.fetch = async function(...args) {
    const res = await _fetch.apply(this, args);
    try {
      const ct = (res.headers.get('content-type') || '').toLowerCase();
      if (ct.includes('application/json')) {
        const cloned = res.clone();
        cloned.json().then(body => {
          try { window.` + BufferGlobal + `.json.push({ src: 'fetch', url: res.url, body }); } catch (e) {}
        }).catch(() => {});
      } else {
        // JSON sometimes ships as text/html; still try.
        const cloned = res.clone();
        cloned.text().then(txt => {
          if (txt && txt.includes('{') && txt.includes('}')) {
            try {
              const guess = JSON.parse(txt);
              window.` + BufferGlobal + `.json.push({ src: 'fetch-text', url: res.url, body: guess });
            } catch (e) {}
          }
        }).catch(() => {});
      }
    } catch (e) {}
    return res;
  };
})();
`

// xhrJS wraps the legacy request object's open/send lifecycle, recording the
// requested URL on open and applying the same content-type-or-speculative
// policy on load.
const xhrJS = `
(() => {
  const open = XMLHttpRequest.prototype.open;
  const send = XMLHttpRequest.prototype.send;
  XMLHttpRequest.prototype.open = function(...args) { this.__aetheriaURL = args[1]; return open.apply(this, args); };
  XMLHttpRequest.prototype.send = function(...args) {
    this.addEventListener('load', function() {
      try {
        const ct = (this.getResponseHeader('content-type') || '').toLowerCase();
        const url = this.__aetheriaURL || '';
        if (ct.includes('application/json')) {
          try { window.` + BufferGlobal + `.json.push({ src: 'xhr', url, body: JSON.parse(this.responseText) }); } catch (e) {}
        } else {
          const txt = this.responseText || '';
          if (/\{[\s\S]*\}/.test(txt)) {
            try {
              const guess = JSON.parse(txt);
              window.` + BufferGlobal + `.json.push({ src: 'xhr-text', url, body: guess });
            } catch (e) {}
          }
        }
      } catch (e) {}
    });
    return send.apply(this, args);
  };
})();
`

// jsonParseJS wraps the generic text-to-structure primitive. Pages often
// decode JSON embedded in their own markup; every object-shaped result is
// mirrored into the json channel.
const jsonParseJS = `
(() => {
  const _parse = JSON.parse;
  JSON.parse = function(s, reviver) {
    const out = _parse.call(this, s, reviver);
    try {
      if (out && typeof out === 'object') {
        window.` + BufferGlobal + `.json.push({ src: 'inline', url: 'inline', body: out });
      }
    } catch (e) {}
    return out;
  };
})();
`

// echartsJS installs a lazy watch on the echarts global: the instant the page
// assigns its library reference, init/setOption are wrapped so every chart
// configuration is recorded before delegation to the real library.
const echartsJS = `
(() => {
  let REF;
  Object.defineProperty(window, 'echarts', {
    configurable: true,
    get() { return REF; },
    set(v) {
      REF = v;
      try {
        const oinit = v.init;
        v.init = function(...a) {
          const inst = oinit.apply(this, a);
          const oset = inst.setOption;
          inst.setOption = function(opts, ...rest) {
            try { window.` + BufferGlobal + `.charts.push({ lib: 'echarts', config: opts }); } catch (e) {}
            return oset.call(this, opts, ...rest);
          };
          return inst;
        };
      } catch (e) {}
    }
  });
})();
`

// chartjsJS installs the same lazy watch for the constructor-style Chart
// global, substituting a construction-recording proxy that is otherwise
// behaviorally identical to the unwrapped library.
const chartjsJS = `
(() => {
  let ChartREF;
  Object.defineProperty(window, 'Chart', {
    configurable: true,
    get() { return ChartREF; },
    set(v) {
      ChartREF = v;
      try {
        const ProxyChart = function(...args) {
          try { window.` + BufferGlobal + `.charts.push({ lib: 'chartjs', config: args[1] }); } catch (e) {}
          return Reflect.construct(v, args, new.target);
        };
        Object.setPrototypeOf(ProxyChart, v);
        ProxyChart.prototype = v.prototype;
        ChartREF = ProxyChart;
      } catch (e) {}
    }
  });
})();
`

// canvasTextJS wraps both glyph-rendering primitives on on-screen and
// off-screen 2D surfaces. Chart values drawn as pixels surface here.
const canvasTextJS = `
(() => {
  const patchCtx = (proto) => {
    if (!proto) return;
    const _fillText = proto.fillText;
    const _strokeText = proto.strokeText;
    proto.fillText = function(text, x, y, ...rest) {
      try { window.` + BufferGlobal + `.canvasText.push({ kind: 'fill', text: String(text), x, y, font: this.font, style: this.fillStyle }); } catch (e) {}
      return _fillText.apply(this, arguments);
    };
    proto.strokeText = function(text, x, y, ...rest) {
      try { window.` + BufferGlobal + `.canvasText.push({ kind: 'stroke', text: String(text), x, y, font: this.font, style: this.strokeStyle }); } catch (e) {}
      return _strokeText.apply(this, arguments);
    };
  };
  try { patchCtx(CanvasRenderingContext2D.prototype); } catch (e) {}
  try { patchCtx(OffscreenCanvasRenderingContext2D.prototype); } catch (e) {}
})();
`

// storageJS mirrors every storage write into the matching scope of the
// buffer. A full dump per scope is still taken at teardown; the mirror keeps
// keys that the page writes and later deletes.
const storageJS = `
(() => {
  const _set = Storage.prototype.setItem;
  Storage.prototype.setItem = function(k, v) {
    try {
      const isLocal = (this === window.localStorage);
      if (isLocal) window.` + BufferGlobal + `.storage.local[k] = String(v);
      else window.` + BufferGlobal + `.storage.session[k] = String(v);
    } catch (e) {}
    return _set.apply(this, arguments);
  };
})();
`

// Registry returns the interceptor set in install order. The bucket bootstrap
// is not part of the registry; InitScript prepends it.
func Registry() []Interceptor {
	return []Interceptor{
		{Name: "fetch", JS: fetchJS},
		{Name: "xhr", JS: xhrJS},
		{Name: "json-parse", JS: jsonParseJS},
		{Name: "echarts", JS: echartsJS},
		{Name: "chartjs", JS: chartjsJS},
		{Name: "canvas-text", JS: canvasTextJS},
		{Name: "storage", JS: storageJS},
	}
}

// InitScript composes the buffer bootstrap and every registered interceptor
// into the single script installed for each new document.
func InitScript() string {
	var sb strings.Builder
	sb.WriteString(bucketJS)
	for _, ic := range Registry() {
		sb.WriteString(ic.JS)
	}
	return sb.String()
}
