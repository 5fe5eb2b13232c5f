package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"course-purchase/internal/client"
	"course-purchase/internal/model"
	"course-purchase/internal/service"

	"github.com/labstack/echo/v4"
)

// ScriptSource lists the script tags loaded into the checkout page.
type ScriptSource interface {
	Scripts() []client.ScriptTag
}

type CheckoutHandler struct {
	purchaseService service.PurchaseService
	scripts         ScriptSource
}

func NewCheckoutHandler(purchaseService service.PurchaseService, scripts ScriptSource) *CheckoutHandler {
	return &CheckoutHandler{
		purchaseService: purchaseService,
		scripts:         scripts,
	}
}

type checkoutPageData struct {
	Scripts      []client.ScriptTag
	Options      model.CheckoutOptions
	CallbackBase string
}

var checkoutPageTmpl = template.Must(template.New("checkout").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Checkout</title>
	{{- range .Scripts}}
	<script id="{{.ID}}" src="{{.Src}}"></script>
	{{- end}}
	<style>
		body {
			font-family: Arial, sans-serif;
			text-align: center;
			margin-top: 80px;
		}
	</style>
</head>
<body>
	<h2>{{.Options.Description}}</h2>
	<p id="status">Opening payment window…</p>

	<script>
		const base = {{.CallbackBase}};
		const status = document.getElementById("status");

		// the session takes one outcome; later widget events (a dismiss after a failure) are dropped
		let settled = false;

		function post(kind, body) {
			if (settled) {
				return;
			}
			settled = true;
			status.textContent = "Processing…";
			fetch(base + "/gateway/" + kind, {
				method: "POST",
				headers: { "Content-Type": "application/json" },
				body: JSON.stringify(body)
			})
				.then(function (r) { return r.json(); })
				.then(function (s) {
					status.textContent = s.state === "SUCCEEDED" ? "Payment successful." : (s.error || "Payment failed.");
				})
				.catch(function () { status.textContent = "Something went wrong. Please try again."; });
		}

		const options = {{.Options}};
		options.handler = function (resp) { post("success", resp); };
		options.modal = { ondismiss: function () { post("dismiss", {}); } };

		const rzp = new Razorpay(options);
		rzp.on("payment.failed", function (resp) { post("failure", { error: resp.error }); });
		rzp.open();
	</script>
</body>
</html>
`))

// CheckoutPage renders the page that opens the gateway widget for an open checkout
// and relays its callbacks back to the purchase API.
func (h *CheckoutHandler) CheckoutPage(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := c.Param("id")

	checkout, err := h.purchaseService.Checkout(ctx, sessionID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = checkoutPageTmpl.Execute(&buf, checkoutPageData{
		Scripts:      h.scripts.Scripts(),
		Options:      checkout.Options,
		CallbackBase: fmt.Sprintf("/api/purchases/%s", sessionID),
	})
	if err != nil {
		return fmt.Errorf("render checkout page: %w", err)
	}

	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
