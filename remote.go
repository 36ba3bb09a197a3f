package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"badger/controller"
	"badger/mqtt"
	"badger/tag"
)

// Signed requests must carry a timestamp within this window of the kiosk clock.
const signatureWindow = 5 * time.Minute

// TapRequest simulates a tag tap.
type TapRequest struct {
	Tag    string `json:"tag"`
	Button int    `json:"button"`
}

// RecordRequest writes a tag record. Timestamp and Signature are required
// when the kiosk has a control secret.
type RecordRequest struct {
	Tag       string `json:"tag"`
	Name      string `json:"name"`
	Comment   string `json:"comment"`
	Timestamp uint64 `json:"timestamp"`
	Signature string `json:"signature"`
}

// remote turns control topic messages into controller commands.
type remote struct {
	clientID string
	secret   string
	now      func() time.Time
}

func newRemote(clientID, secret string) *remote {
	return &remote{clientID: clientID, secret: secret, now: time.Now}
}

func (r *remote) parse(topic string, payload []byte) (controller.Command, error) {
	switch topic {
	case mqtt.ControlTopic(r.clientID, "tap"):
		var req TapRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return controller.Command{}, fmt.Errorf("decode tap: %w", err)
		}
		t, err := parseTag(req.Tag)
		if err != nil {
			return controller.Command{}, err
		}
		return controller.Command{Type: controller.CmdTap, Tag: t, Button: tag.Button(req.Button)}, nil

	case mqtt.ControlTopic(r.clientID, "record"):
		var req RecordRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return controller.Command{}, fmt.Errorf("decode record: %w", err)
		}
		t, err := parseTag(req.Tag)
		if err != nil {
			return controller.Command{}, err
		}
		if err := r.authorize(t, req); err != nil {
			return controller.Command{}, err
		}
		return controller.Command{Type: controller.CmdSave, Tag: t, Name: req.Name, Comment: req.Comment}, nil

	case mqtt.ControlTopic(r.clientID, "print"):
		return controller.Command{Type: controller.CmdPrint}, nil

	default:
		return controller.Command{}, fmt.Errorf("unknown topic %s", topic)
	}
}

func (r *remote) authorize(t tag.Tag, req RecordRequest) error {
	if r.secret == "" {
		return nil
	}
	if err := verifySignature(r.secret, req.Signature, req.Timestamp, t.String(), req.Name, req.Comment); err != nil {
		return err
	}
	ts := time.Unix(int64(req.Timestamp), 0)
	now := r.now()
	if now.Before(ts.Add(-signatureWindow)) || now.After(ts.Add(signatureWindow)) {
		return errors.New("record request timestamp out of range")
	}
	return nil
}

func parseTag(s string) (tag.Tag, error) {
	t, err := tag.Parse(strings.TrimSpace(s))
	if err != nil {
		return tag.Tag{}, err
	}
	if t.IsZero() {
		return tag.Tag{}, errors.New("empty tag")
	}
	return t, nil
}

// Signature helpers. The signed message is the fields concatenated with a
// NUL separator, followed by the big-endian timestamp.

func signRequest(base64Secret string, ts uint64, fields ...string) (string, string, error) {
	secret, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return "", "", fmt.Errorf("invalid base64 secret: %w", err)
	}
	if len(secret) == 0 {
		return "", "", fmt.Errorf("secret cannot be empty")
	}

	msg := []byte(strings.Join(fields, "\x00"))
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], ts)
	msg = append(msg, tsBuf[:]...)

	mac := hmac.New(sha256.New, secret)
	mac.Write(msg)
	sum := mac.Sum(nil)

	return hex.EncodeToString(sum), base64.StdEncoding.EncodeToString(sum), nil
}

func verifySignature(base64Secret, providedSig string, ts uint64, fields ...string) error {
	sigHex, sigBase64, err := signRequest(base64Secret, ts, fields...)
	if err != nil {
		return err
	}

	// Try hex
	if decoded, err := hex.DecodeString(providedSig); err == nil {
		expected, _ := hex.DecodeString(sigHex)
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return nil
		}
	}

	// Try base64
	if decoded, err := base64.StdEncoding.DecodeString(providedSig); err == nil {
		expected, _ := base64.StdEncoding.DecodeString(sigBase64)
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return nil
		}
	}

	return fmt.Errorf("signature verification failed")
}
