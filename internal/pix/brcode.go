package pix

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EMV-MPM field IDs used by the BR Code payload
const (
	idPayloadFormat       = "00"
	idMerchantAccountInfo = "26"
	idMerchantCategory    = "52"
	idCurrency            = "53"
	idAmount              = "54"
	idCountryCode         = "58"
	idMerchantName        = "59"
	idMerchantCity        = "60"
	idAdditionalData      = "62"
	idCRC                 = "63"

	idGUI    = "00"
	idPixKey = "01"
	idTxID   = "05"

	pixGUI = "br.gov.bcb.pix"
)

// BRCode describes one PIX payment request
type BRCode struct {
	PixKey       string
	MerchantName string
	MerchantCity string
	Amount       decimal.Decimal
	TxID         string
}

// Build encodes the payment request as an EMV-MPM TLV payload with a
// CRC-16/CCITT-FALSE checksum, the format PIX QR codes carry.
func (b *BRCode) Build() string {
	var sb strings.Builder

	sb.WriteString(tlv(idPayloadFormat, "01"))

	account := tlv(idGUI, pixGUI) + tlv(idPixKey, b.PixKey)
	sb.WriteString(tlv(idMerchantAccountInfo, account))

	sb.WriteString(tlv(idMerchantCategory, "0000"))
	sb.WriteString(tlv(idCurrency, "986")) // BRL
	sb.WriteString(tlv(idAmount, b.Amount.StringFixed(2)))
	sb.WriteString(tlv(idCountryCode, "BR"))
	sb.WriteString(tlv(idMerchantName, truncate(b.MerchantName, 25)))
	sb.WriteString(tlv(idMerchantCity, truncate(b.MerchantCity, 15)))
	sb.WriteString(tlv(idAdditionalData, tlv(idTxID, truncate(b.TxID, 25))))

	// CRC covers everything up to and including its own ID and length
	payload := sb.String() + idCRC + "04"
	return payload + fmt.Sprintf("%04X", crc16(payload))
}

// Verify reports whether the payload's trailing CRC matches its content
func Verify(payload string) bool {
	if len(payload) < 8 {
		return false
	}
	body := payload[:len(payload)-4]
	want := payload[len(payload)-4:]
	return fmt.Sprintf("%04X", crc16(body)) == want
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// crc16 implements CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF)
func crc16(data string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
