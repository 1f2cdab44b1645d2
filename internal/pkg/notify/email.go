package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"phonescout/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 实现邮件降价提醒。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

// SendPriceDrop 发送降价提醒邮件。SMTP 未配置或收件人为空时跳过并记日志。
func (n *EmailNotifier) SendPriceDrop(ctx context.Context, drop PriceDrop, toEmail string) error {
	if n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		n.logger.Warn("email config missing, skip notification")
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		n.logger.Warn("email recipient empty, skip notification")
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[PhoneScout] Price drop: %s %s",
		drop.Product.Brand, drop.Product.ModelName))
	m.SetBody("text/html", n.buildHTMLBody(drop))

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("price drop notification sent",
		slog.String("to", toEmail),
		slog.String("product_id", drop.Product.ID))
	return nil
}

func (n *EmailNotifier) buildHTMLBody(drop PriceDrop) string {
	currency := drop.Currency
	if currency == "" {
		currency = "USD"
	}
	priceLine := fmt.Sprintf("%s %.2f → %s %.2f 📉", currency, drop.OldPrice, currency, drop.NewPrice)

	template := `
<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8" />
<style>
  body { font-family: Arial, sans-serif; background: #f6f7fb; color: #1f2937; }
  .card { max-width: 600px; margin: 24px auto; background: #ffffff; border-radius: 12px; overflow: hidden; border: 1px solid #e5e7eb; }
  .header { background: #0f172a; color: #ffffff; padding: 16px 20px; font-size: 16px; font-weight: bold; }
  .content { padding: 20px; }
  .price { font-size: 26px; font-weight: bold; color: #ef4444; margin: 8px 0 12px; }
  .title { font-size: 16px; margin-bottom: 16px; }
  .footer { margin-top: 20px; font-size: 12px; color: #6b7280; }
</style>
</head>
<body>
  <div class="card">
    <div class="header">[PhoneScout] Price drop on a favorite</div>
    <div class="content">
      <div class="price">%s</div>
      <div class="title">%s %s</div>
      <div class="footer">Best offer from %s</div>
    </div>
  </div>
</body>
</html>`

	return fmt.Sprintf(template, priceLine, drop.Product.Brand, drop.Product.ModelName, drop.Retailer)
}
