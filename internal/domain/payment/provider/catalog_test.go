package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("All built-in providers are present", func(t *testing.T) {
		for _, id := range []string{Stripe, Alipay, Wechat, BankTransfer, FPS, PayMe} {
			_, ok := catalog.Get(id)
			assert.True(t, ok, id)
		}
	})

	t.Run("Unknown provider is not found", func(t *testing.T) {
		_, ok := catalog.Get("paypal")
		assert.False(t, ok)
	})

	t.Run("Manual and redirect split", func(t *testing.T) {
		for id, manual := range map[string]bool{
			Stripe: false, Alipay: false, Wechat: false,
			BankTransfer: true, FPS: true, PayMe: true,
		} {
			def, _ := catalog.Get(id)
			assert.Equal(t, manual, def.Manual(), id)
		}
	})

	t.Run("List preserves registration order", func(t *testing.T) {
		defs := catalog.List()
		assert.Len(t, defs, 6)
		assert.Equal(t, Stripe, defs[0].ID)
	})
}

func TestValidateConfig(t *testing.T) {
	catalog := DefaultCatalog()

	t.Run("Complete config passes", func(t *testing.T) {
		err := catalog.ValidateConfig(BankTransfer, map[string]string{
			"bank_name":      "HSBC",
			"account_name":   "Tea Shop Ltd",
			"account_number": "123-456789-001",
		})
		assert.NoError(t, err)
	})

	t.Run("Missing required field is reported by name", func(t *testing.T) {
		err := catalog.ValidateConfig(Stripe, map[string]string{
			"secret_key": "sk_test_123",
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "webhook_secret")
	})

	t.Run("Optional fields may be omitted", func(t *testing.T) {
		err := catalog.ValidateConfig(FPS, map[string]string{"fps_id": "12345678"})
		assert.NoError(t, err)
	})

	t.Run("Unknown provider is rejected", func(t *testing.T) {
		err := catalog.ValidateConfig("paypal", nil)
		assert.Error(t, err)
	})
}
