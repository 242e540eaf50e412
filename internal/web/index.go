package web

// Single page basket editor: symbol list, basket table, index chart and statistics.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Perp Basket</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <link href="https://fonts.googleapis.com/css2?family=Press+Start+2P&family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root { --bg:#ffffff; --ink:#111111; --ink-mid:#4d4d4d; --ink-soft:#9c9c9c; --panel:#f6f6f6; --long:#1b9aaa; --short:#d7263d; }
    * { box-sizing:border-box; }
    body { margin:0; padding:2rem; background:var(--bg); color:var(--ink); font-family:'Space Mono','JetBrains Mono',monospace; }
    #app { width:min(1400px, 96vw); margin:0 auto; background:var(--panel); border:3px solid var(--ink); padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15); display:grid; grid-template-columns:320px 1fr; gap:2rem; }
    .eyebrow { font-family:'Press Start 2P','Space Mono',monospace; font-size:.55rem; text-transform:uppercase; letter-spacing:.2em; margin:0 0 1rem; }
    .card { border:3px solid var(--ink); padding:1rem; background:#fff; box-shadow:6px 6px 0 rgba(0,0,0,.12); }
    .symbols { max-height:70vh; overflow-y:auto; }
    .row { display:flex; justify-content:space-between; align-items:center; gap:.5rem; padding:.3rem 0; border-bottom:1px dashed var(--ink-soft); font-size:.7rem; }
    button { font-family:inherit; font-size:.6rem; text-transform:uppercase; border:2px solid var(--ink); background:#fff; cursor:pointer; padding:.2rem .5rem; }
    button.long { color:var(--long); border-color:var(--long); }
    button.short { color:var(--short); border-color:var(--short); }
    input, select { font-family:inherit; font-size:.7rem; border:2px solid var(--ink); padding:.2rem; }
    input.weight { width:5rem; }
    .stats { display:grid; grid-template-columns:repeat(4, 1fr); gap:1rem; }
    .stat .label { font-size:.55rem; text-transform:uppercase; letter-spacing:.2em; color:var(--ink-mid); }
    .stat .value { font-size:1.3rem; font-weight:700; margin-top:.5rem; }
    .error { color:var(--short); font-size:.7rem; min-height:1rem; }
    .toolbar { display:flex; gap:.5rem; align-items:center; margin-bottom:1rem; }
    main { display:flex; flex-direction:column; gap:1.5rem; }
  </style>
</head>
<body>
<div id="app">
  <aside class="card symbols">
    <p class="eyebrow">instruments</p>
    <input id="filter" placeholder="filter" />
    <div id="symbols"></div>
  </aside>
  <main>
    <section class="card">
      <p class="eyebrow">basket</p>
      <div class="toolbar">
        <select id="resolution"></select>
        <input id="start" type="date" title="range start (UTC)" />
        <input id="end" type="date" title="range end (UTC)" />
        <button id="rebalance">rebalance</button>
        <button id="refresh">refresh</button>
        <button id="clear">clear</button>
        <span id="sums"></span>
      </div>
      <div id="basket"></div>
      <div id="error" class="error"></div>
    </section>
    <section class="card stats" id="stats"></section>
    <section class="card"><canvas id="chart" height="320"></canvas></section>
  </main>
</div>
<script>
const resolutions = ['1m','3m','5m','15m','30m','1h','2h','4h','6h','8h','12h','1d','3d','1w','1M'];
const $ = (id) => document.getElementById(id);
let symbols = [];
let chart;

async function api(method, path, body){
  const res = await fetch(path, { method, headers:{'Content-Type':'application/json'}, body: body ? JSON.stringify(body) : undefined });
  const data = await res.json().catch(() => ({}));
  return { ok: res.ok, data };
}

function renderSymbols(){
  const f = $('filter').value.toUpperCase();
  $('symbols').innerHTML = '';
  symbols.filter(s => s.symbol.includes(f)).slice(0, 200).forEach(s => {
    const row = document.createElement('div');
    row.className = 'row';
    row.innerHTML = '<span>' + s.base + ' ' + s.lastPrice + ' <small>' + s.priceChangePercent.toFixed(2) + '%</small></span>';
    ['long','short'].forEach(side => {
      const b = document.createElement('button');
      b.className = side; b.textContent = side;
      b.onclick = () => edit('add', { symbol: s.symbol, position: side });
      row.appendChild(b);
    });
    $('symbols').appendChild(row);
  });
}

function renderBasket(snap){
  $('resolution').value = snap.resolution;
  const day = (ms) => ms ? new Date(ms).toISOString().slice(0, 10) : '';
  $('start').value = day(snap.range.start);
  $('end').value = day(snap.range.end);
  $('sums').textContent = 'long ' + snap.longWeight.toFixed(2) + ' / short ' + snap.shortWeight.toFixed(2) + (snap.valid ? '' : ' (invalid)');
  $('basket').innerHTML = '';
  snap.selections.forEach(s => {
    const row = document.createElement('div');
    row.className = 'row';
    const side = document.createElement('button');
    side.className = s.position; side.textContent = s.position;
    side.onclick = () => edit('position', { symbol: s.symbol, position: s.position === 'long' ? 'short' : 'long' });
    const weight = document.createElement('input');
    weight.className = 'weight'; weight.type = 'number'; weight.step = '0.01'; weight.value = s.weight.toFixed(2);
    weight.onchange = () => edit('weight', { symbol: s.symbol, weight: parseFloat(weight.value) });
    const remove = document.createElement('button');
    remove.textContent = 'x';
    remove.onclick = () => edit('remove', { symbol: s.symbol });
    const name = document.createElement('span');
    name.textContent = s.symbol;
    row.append(name, side, weight, remove);
    $('basket').appendChild(row);
  });
}

function renderState(state){
  $('error').textContent = state.error || '';
  const res = state.result;
  const st = res ? res.statistics : { totalReturn:0, annualizedVolatility:0, sharpeRatio:0, maxDrawdown:0 };
  $('stats').innerHTML = [['total return', st.totalReturn.toFixed(2) + '%'], ['volatility', st.annualizedVolatility.toFixed(2) + '%'],
    ['sharpe', st.sharpeRatio.toFixed(2)], ['max drawdown', st.maxDrawdown.toFixed(2) + '%']]
    .map(([l, v]) => '<div class="stat"><div class="label">' + l + '</div><div class="value">' + v + '</div></div>').join('');
  const points = res ? res.basketData : [];
  const datasets = [{ label:'basket', data: points.map(p => p.value), borderColor:'#111111', borderWidth:2, pointRadius:0 }];
  (res ? res.componentData : []).forEach(c => datasets.push({ label:c.symbol, data:c.data.map(p => p.value), borderWidth:1, pointRadius:0 }));
  chart.data.labels = points.map(p => new Date(p.time).toLocaleString());
  chart.data.datasets = datasets;
  chart.update('none');
}

async function edit(action, body){
  const { ok, data } = await api('POST', '/api/basket/' + action, body);
  if(!ok){ $('error').textContent = data.error || 'request failed'; return; }
  renderBasket(data);
  refresh();
}

async function refresh(){
  const { data } = await api('POST', '/api/basket/refresh');
  if(data && 'result' in data){ renderState(data); }
}

async function init(){
  resolutions.forEach(r => { const o = document.createElement('option'); o.value = r; o.textContent = r; $('resolution').appendChild(o); });
  chart = new Chart($('chart').getContext('2d'), { type:'line', data:{ labels:[], datasets:[] }, options:{ animation:false, interaction:{ intersect:false, mode:'index' } } });
  $('filter').oninput = renderSymbols;
  $('resolution').onchange = () => edit('resolution', { resolution: $('resolution').value });
  const bound = (id) => $(id).value ? Date.parse($(id).value + 'T00:00:00Z') : 0;
  $('start').onchange = $('end').onchange = () => edit('range', { start: bound('start'), end: bound('end') });
  $('rebalance').onclick = () => edit('rebalance');
  $('refresh').onclick = refresh;
  $('clear').onclick = async () => { const { data } = await api('DELETE', '/api/basket'); renderBasket(data); renderState({}); };
  const sym = await api('GET', '/api/symbols');
  if(sym.ok){ symbols = sym.data; renderSymbols(); } else { $('error').textContent = sym.data.error || 'failed to load symbols'; }
  renderBasket((await api('GET', '/api/basket')).data);
  renderState((await api('GET', '/api/basket/series')).data);
}

init();
</script>
</body>
</html>`
