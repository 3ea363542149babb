package utils

import (
	"bytes"
	"encoding/xml"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{Code: code, Message: message, Data: data})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// TwiML writes the minimal gateway reply envelope. The gateway expects HTTP
// 200 even for rejected messages; the human-readable text is what reaches
// the sender.
func TwiML(ctx *gin.Context, message string) {
	var escaped bytes.Buffer
	_ = xml.EscapeText(&escaped, []byte(message))
	body := `<?xml version="1.0" encoding="UTF-8"?><Response><Message>` + escaped.String() + `</Message></Response>`
	ctx.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(body))
}

// SmsError answers an inbound-webhook failure: TwiML for the gateway, JSON
// with the real status code for direct/internal callers.
func SmsError(ctx *gin.Context, gateway bool, httpStatus int, errCode, message string) {
	if gateway {
		TwiML(ctx, message)
		return
	}
	ctx.JSON(httpStatus, gin.H{"error": errCode, "message": message})
}

// SmsOK answers a successful inbound report in the negotiated format.
func SmsOK(ctx *gin.Context, gateway bool, message string, extra gin.H) {
	if gateway {
		TwiML(ctx, message)
		return
	}
	payload := gin.H{"ok": true, "message": message}
	for k, v := range extra {
		payload[k] = v
	}
	ctx.JSON(http.StatusOK, payload)
}
