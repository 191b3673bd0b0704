package provider

import (
	"fmt"
)

// 支付方式类型
const (
	TypeManual   = "manual"   // 线下转账，上传凭证后由管理员人工确认
	TypeRedirect = "redirect" // 跳转第三方收银台，异步 webhook 回调确认
)

// 支付方式 ID
const (
	Stripe       = "stripe"
	Alipay       = "alipay"
	Wechat       = "wechat"
	BankTransfer = "bank_transfer"
	FPS          = "fps"
	PayMe        = "payme"
)

// ConfigField 租户配置字段定义
type ConfigField struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Secret   bool   `json:"secret"` // 展示时需要脱敏
}

// Definition 支付方式定义，纯静态数据，不落库
type Definition struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	ConfigFields []ConfigField `json:"configFields"`
}

// Manual 是否为人工确认类支付方式
func (d Definition) Manual() bool {
	return d.Type == TypeManual
}

// Catalog 不可变的支付方式目录
// 启动时用 NewCatalog 构造后只读，显式注入到需要它的模块
type Catalog struct {
	defs  map[string]Definition
	order []string
}

// NewCatalog 构造目录，重复 ID 后写覆盖前写
func NewCatalog(defs ...Definition) *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if _, exists := c.defs[d.ID]; !exists {
			c.order = append(c.order, d.ID)
		}
		c.defs[d.ID] = d
	}
	return c
}

// Get 查找支付方式定义
func (c *Catalog) Get(id string) (Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// List 按注册顺序返回全部定义
func (c *Catalog) List() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.defs[id])
	}
	return out
}

// ValidateConfig 校验租户提交的支付方式配置是否包含所有必填字段
func (c *Catalog) ValidateConfig(id string, cfg map[string]string) error {
	def, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("unknown payment provider: %s", id)
	}
	for _, f := range def.ConfigFields {
		if f.Required && cfg[f.Name] == "" {
			return fmt.Errorf("provider %s: missing required config field %q", id, f.Name)
		}
	}
	return nil
}

// DefaultCatalog 平台内置支付方式
func DefaultCatalog() *Catalog {
	return NewCatalog(
		Definition{
			ID:   Stripe,
			Type: TypeRedirect,
			ConfigFields: []ConfigField{
				{Name: "secret_key", Label: "Secret Key", Required: true, Secret: true},
				{Name: "webhook_secret", Label: "Webhook Signing Secret", Required: true, Secret: true},
				{Name: "publishable_key", Label: "Publishable Key", Required: false},
			},
		},
		Definition{
			ID:   Alipay,
			Type: TypeRedirect,
			ConfigFields: []ConfigField{
				{Name: "app_id", Label: "App ID", Required: true},
				{Name: "private_key", Label: "App Private Key", Required: true, Secret: true},
				{Name: "public_key", Label: "Alipay Public Key", Required: true},
			},
		},
		Definition{
			ID:   Wechat,
			Type: TypeRedirect,
			ConfigFields: []ConfigField{
				{Name: "app_id", Label: "App ID", Required: true},
				{Name: "mch_id", Label: "Merchant ID", Required: true},
				{Name: "mch_cert_serial", Label: "Merchant Cert Serial", Required: true},
				{Name: "mch_private_key", Label: "Merchant Private Key", Required: true, Secret: true},
				{Name: "apiv3_key", Label: "APIv3 Key", Required: true, Secret: true},
			},
		},
		Definition{
			ID:   BankTransfer,
			Type: TypeManual,
			ConfigFields: []ConfigField{
				{Name: "bank_name", Label: "Bank Name", Required: true},
				{Name: "account_name", Label: "Account Name", Required: true},
				{Name: "account_number", Label: "Account Number", Required: true},
			},
		},
		Definition{
			ID:   FPS,
			Type: TypeManual,
			ConfigFields: []ConfigField{
				{Name: "fps_id", Label: "FPS ID", Required: true},
				{Name: "account_name", Label: "Account Name", Required: false},
			},
		},
		Definition{
			ID:   PayMe,
			Type: TypeManual,
			ConfigFields: []ConfigField{
				{Name: "phone_number", Label: "PayMe Phone Number", Required: true},
				{Name: "payme_link", Label: "PayMe Link", Required: false},
			},
		},
	)
}
