package http

// paywallTemplate is the built-in browser paywall. The page reads its
// payment parameters from window.x402, injected by InjectPaymentData.
const paywallTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Payment Required</title>
  <style>
    :root {
      --bg: #f7f8fa;
      --card: #ffffff;
      --text: #111827;
      --muted: #6b7280;
      --accent: #2563eb;
      --border: #e5e7eb;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      background: var(--bg);
      color: var(--text);
      display: flex;
      align-items: center;
      justify-content: center;
      min-height: 100vh;
    }
    .card {
      background: var(--card);
      border: 1px solid var(--border);
      border-radius: 12px;
      padding: 2rem;
      max-width: 28rem;
      width: 100%;
      box-shadow: 0 1px 3px rgba(0, 0, 0, 0.06);
    }
    .card header {
      display: flex;
      align-items: center;
      gap: 0.75rem;
      margin-bottom: 1rem;
    }
    .card header img { height: 2rem; }
    .card h1 { font-size: 1.25rem; margin: 0; }
    .amount {
      font-size: 2rem;
      font-weight: 600;
      margin: 1rem 0;
    }
    .resource {
      color: var(--muted);
      font-size: 0.875rem;
      word-break: break-all;
      margin-bottom: 1.5rem;
    }
    .error {
      color: #b91c1c;
      font-size: 0.875rem;
      margin-bottom: 1rem;
    }
    .testnet-badge {
      display: none;
      background: #fef3c7;
      color: #92400e;
      border-radius: 6px;
      padding: 0.25rem 0.5rem;
      font-size: 0.75rem;
      margin-bottom: 1rem;
    }
    button {
      width: 100%;
      background: var(--accent);
      color: #fff;
      border: none;
      border-radius: 8px;
      padding: 0.75rem 1rem;
      font-size: 1rem;
      cursor: pointer;
    }
    button:disabled { opacity: 0.5; cursor: default; }
    .hint {
      color: var(--muted);
      font-size: 0.75rem;
      margin-top: 1rem;
      text-align: center;
    }
  </style>
</head>
<body>
  <div class="card">
    <header>
      <img id="app-logo" alt="" hidden>
      <h1 id="app-name">Payment Required</h1>
    </header>
    <div id="testnet-badge" class="testnet-badge">Testnet</div>
    <div id="error" class="error" hidden></div>
    <div class="amount" id="amount">$0.00</div>
    <div class="resource" id="resource"></div>
    <button id="pay-button">Connect wallet to pay</button>
    <p class="hint">Powered by the x402 payment protocol</p>
  </div>
  <script>
    (function () {
      var cfg = window.x402 || {};
      if (cfg.appName) {
        document.getElementById('app-name').textContent = cfg.appName;
      }
      if (cfg.appLogo) {
        var logo = document.getElementById('app-logo');
        logo.src = cfg.appLogo;
        logo.hidden = false;
      }
      if (cfg.error) {
        var errorEl = document.getElementById('error');
        errorEl.textContent = cfg.error;
        errorEl.hidden = false;
      }
      if (cfg.testnet) {
        document.getElementById('testnet-badge').style.display = 'inline-block';
      }
      document.getElementById('amount').textContent =
        '$' + Number(cfg.amount || 0).toFixed(2);
      document.getElementById('resource').textContent = cfg.currentUrl || '';
    })();
  </script>
</body>
</html>
`
