// Package card composes guest and reservation data with the issued
// credential into a printable digital room card. It consumes credential
// output and never touches lifecycle state.
package card

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/diagnosis/stayline-hotel/internal/domain"
)

const qrSize = 256

// Card is the rendered artifact: an HTML page for print/download, a plain
// text fallback for email bodies, and the raw QR PNG.
type Card struct {
	HTML  string
	Text  string
	QRPNG []byte
}

var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Property}} Room Card</title></head>
<body style="font-family: sans-serif; max-width: 420px; margin: 2em auto;">
  <h2>{{.Property}}</h2>
  <p><strong>{{.GuestName}}</strong></p>
  <table style="width:100%; border-collapse: collapse;">
    <tr><td>Room</td><td style="text-align:right">{{.RoomNumber}} ({{.RoomType}})</td></tr>
    <tr><td>Check-in</td><td style="text-align:right">{{.CheckIn}}</td></tr>
    <tr><td>Check-out</td><td style="text-align:right">{{.CheckOut}}</td></tr>
    <tr><td>Guests</td><td style="text-align:right">{{.NumGuests}}</td></tr>
    <tr><td>Reservation</td><td style="text-align:right">{{.ReservationID}}</td></tr>
  </table>
  <p style="text-align:center">
    <img src="data:image/png;base64,{{.QRBase64}}" alt="room key QR" width="{{.QRSize}}" height="{{.QRSize}}">
  </p>
  <p style="font-size: small; color: #666;">Present this code at the front desk for check-in and check-out.</p>
</body>
</html>
`))

type templateData struct {
	Property      string
	GuestName     string
	RoomNumber    string
	RoomType      domain.RoomType
	CheckIn       string
	CheckOut      string
	NumGuests     int
	ReservationID string
	QRBase64      string
	QRSize        int
}

// Render builds the card for a confirmed reservation. The reservation must
// carry its issued credential; the QR encodes the credential payload itself
// so any scanner feeds it straight into verification.
func Render(property string, res *domain.Reservation, room *domain.Room, guest *domain.Guest) (*Card, error) {
	if res.Credential == "" {
		return nil, fmt.Errorf("%w: reservation has no issued credential", domain.ErrInvalidArgument)
	}

	png, err := qrcode.Encode(res.Credential, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode QR: %w", err)
	}

	data := templateData{
		Property:      property,
		GuestName:     guest.FullName(),
		RoomNumber:    room.Number,
		RoomType:      room.Type,
		CheckIn:       res.CheckIn.String(),
		CheckOut:      res.CheckOut.String(),
		NumGuests:     res.NumGuests,
		ReservationID: res.ID,
		QRBase64:      base64.StdEncoding.EncodeToString(png),
		QRSize:        qrSize,
	}

	var buf bytes.Buffer
	if err := cardTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render card: %w", err)
	}

	text := fmt.Sprintf(
		"%s\n%s\nRoom %s (%s)\nCheck-in: %s\nCheck-out: %s\nGuests: %d\nReservation: %s\n",
		property, data.GuestName, room.Number, room.Type,
		data.CheckIn, data.CheckOut, res.NumGuests, res.ID,
	)

	return &Card{HTML: buf.String(), Text: text, QRPNG: png}, nil
}
