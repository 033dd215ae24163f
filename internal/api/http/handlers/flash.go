package handlers

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
)

const flashCookie = "flash"

// Message levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
)

// Message is a one-shot notice shown on the next rendered page.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// Flash queues a message for the next page render.
func Flash(c *fiber.Ctx, level, text string) {
	pending := append(readFlash(c), Message{Level: level, Text: text})
	raw, err := json.Marshal(pending)
	if err != nil {
		return
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	c.Request().Header.SetCookie(flashCookie, encoded)
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    encoded,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(5 * time.Minute),
	})
}

// takeFlash returns queued messages and clears the cookie.
func takeFlash(c *fiber.Ctx) []Message {
	pending := readFlash(c)
	if len(pending) > 0 {
		c.Cookie(&fiber.Cookie{
			Name:     flashCookie,
			Value:    "",
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Expires:  time.Unix(0, 0),
		})
	}
	return pending
}

func readFlash(c *fiber.Ctx) []Message {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil
	}
	var pending []Message
	if err := json.Unmarshal(decoded, &pending); err != nil {
		return nil
	}
	return pending
}
