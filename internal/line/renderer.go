package line

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/sugarguard/SugarGuard/internal/models"
)

// Brand colors from the service's visual identity.
const (
	colorPrimary   = "#2E86AB"
	colorSecondary = "#5A9FD4"
	colorMuted     = "#666666"
	colorFaint     = "#999999"
	colorDivider   = "#E6F3FF"
	colorHeaderBG  = "#F0F8FF"
)

// Renderer turns outbound intents into LINE message payloads. It consumes
// the engine's output and never feeds back into it.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render maps a batch of intents to the messages of one reply call.
func (r *Renderer) Render(intents []models.OutboundIntent) []linebot.SendingMessage {
	var msgs []linebot.SendingMessage
	for _, intent := range intents {
		if m := r.renderOne(intent); m != nil {
			msgs = append(msgs, m)
		}
	}
	return msgs
}

func (r *Renderer) renderOne(intent models.OutboundIntent) linebot.SendingMessage {
	switch intent.Kind {
	case models.IntentTermsPrompt:
		return termsMessage()
	case models.IntentConsentCompleted:
		return welcomeMessage()
	case models.IntentButtonCheck:
		return linebot.NewTextMessage("為了確認訊息顯示正常，請問您看得到下方的按鈕嗎？").
			WithQuickReplies(yesNoQuickReplies())
	case models.IntentConsentReprompt:
		return linebot.NewTextMessage("請點選條款頁面中的「同意並開始使用」或「暫不同意」按鈕，或直接回覆「同意」或「不同意」。")
	case models.IntentOptOutAck:
		return linebot.NewTextMessage("感謝您的回覆。如果您改變心意，歡迎隨時輸入「重新開始」。\n\n為了保護您的隱私，我們將不會保存任何資料。")
	case models.IntentConsentReminder:
		return linebot.NewTextMessage("由於您尚未同意服務條款，目前無法使用糖小護的功能。\n\n如果您想重新開始，請輸入「重新開始」。")
	case models.IntentTutorialOffer:
		return linebot.NewTextMessage("太好了！需要我為您介紹糖小護的功能嗎？").
			WithQuickReplies(tutorialChoiceQuickReplies())
	case models.IntentUIExplainer:
		return linebot.NewTextMessage("沒關係！按鈕會顯示在訊息下方的快速回覆區域。如果看不到按鈕，您也可以直接輸入文字操作，例如回覆「是」或「否」。")
	case models.IntentButtonCheckReprompt:
		return linebot.NewTextMessage("請回覆「是」或「否」，讓我確認您是否看得到按鈕。").
			WithQuickReplies(yesNoQuickReplies())
	case models.IntentFeatureCarousel:
		return featureCarouselMessage()
	case models.IntentTutorialSkipAck:
		return linebot.NewTextMessage("好的，已為您跳過教學！現在就開始輸入您的血糖數值或問我任何健康問題吧！")
	case models.IntentTutorialChoiceReprompt:
		return linebot.NewTextMessage("請回覆「我要教學」或「跳過教學」。").
			WithQuickReplies(tutorialChoiceQuickReplies())
	case models.IntentTopicDetail:
		return linebot.NewTextMessage(topicDetailText(intent.Topic))
	case models.IntentReadingRecorded:
		value := ""
		if intent.Reading != nil {
			value = intent.Reading.RawValue
		}
		return linebot.NewTextMessage(fmt.Sprintf(
			"📊 已記錄您的血糖數據：%s\n\n這是您的第 %d 筆記錄。如需查看報表或更多功能，請繼續輸入指令。",
			value, intent.Count))
	case models.IntentReadingSummary:
		return linebot.NewTextMessage(summaryText(intent.Recent, intent.Count))
	case models.IntentNoReadingsYet:
		return linebot.NewTextMessage("📈 您還沒有血糖記錄。請先輸入血糖數值開始記錄！")
	case models.IntentGenericReply:
		if intent.Echo == "" {
			return linebot.NewTextMessage("💬 糖小護在這裡！您可以輸入血糖數值或健康相關問題。")
		}
		return linebot.NewTextMessage(fmt.Sprintf(
			"💬 糖小護收到您的訊息：%s\n\n我正在學習更多健康知識來更好地為您服務！您可以輸入血糖數值或健康相關問題。",
			intent.Echo))
	case models.IntentMediaUnsupported:
		return linebot.NewTextMessage("糖小護目前支援文字訊息，圖片功能正在開發中！\n\n請輸入您的血糖數值或健康相關問題。")
	case models.IntentServiceUnavailable:
		return linebot.NewTextMessage("😥 系統暫時忙碌中，請稍後再試一次。")
	default:
		slog.Error("Renderer unsupported intent kind", "kind", intent.Kind)
		return nil
	}
}

// summaryText lists the most recent readings with their dates and the total
// count, oldest of the window first.
func summaryText(recent []models.Reading, total int) string {
	lines := make([]string, 0, len(recent))
	for _, reading := range recent {
		lines = append(lines, fmt.Sprintf("• %s (%s)", reading.RawValue, reading.RecordedAt.Format("2006-01-02")))
	}
	return fmt.Sprintf("📈 您的血糖記錄（最近%d筆）：\n%s\n\n總共已記錄 %d 筆數據。完整報表功能開發中！",
		len(recent), strings.Join(lines, "\n"), total)
}

func topicDetailText(topic models.TutorialTopic) string {
	switch topic {
	case models.TopicRecording:
		return "📝 記錄血糖\n\n直接輸入血糖數值（例如「120」或「血糖 95」），糖小護就會幫您記錄下來，並告訴您這是第幾筆記錄。建議每天固定時間測量並記錄。"
	case models.TopicReports:
		return "📊 查看報表\n\n輸入「報表」或「圖表」，糖小護會列出您最近五筆血糖記錄與累計筆數。完整圖表功能開發中！"
	case models.TopicConsulting:
		return "💬 健康諮詢\n\n您可以直接輸入健康相關問題，糖小護正在學習更多健康知識，智慧諮詢功能即將推出！"
	case models.TopicImaging:
		return "📸 圖片上傳\n\n檢查報告圖片分析功能正在開發中，敬請期待！目前請先以文字輸入您的血糖數值。"
	default:
		return "請從功能列表中選擇想了解的主題。"
	}
}

func yesNoQuickReplies() *linebot.QuickReplyItems {
	return linebot.NewQuickReplyItems(
		linebot.NewQuickReplyButton("", linebot.NewMessageAction("看得到", "是")),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction("看不到", "否")),
	)
}

func tutorialChoiceQuickReplies() *linebot.QuickReplyItems {
	return linebot.NewQuickReplyItems(
		linebot.NewQuickReplyButton("", linebot.NewMessageAction("我要教學", "我要教學")),
		linebot.NewQuickReplyButton("", linebot.NewMessageAction("跳過教學", "跳過教學")),
	)
}

// termsMessage builds the terms-of-service card with agree/disagree buttons.
func termsMessage() linebot.SendingMessage {
	bubble := &linebot.BubbleContainer{
		Type: linebot.FlexContainerTypeBubble,
		Size: linebot.FlexBubbleSizeTypeMega,
		Header: &linebot.BoxComponent{
			Type:            linebot.FlexComponentTypeBox,
			Layout:          linebot.FlexBoxLayoutTypeVertical,
			BackgroundColor: colorHeaderBG,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "🩺 糖小護",
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeXl,
					Color:  colorPrimary,
					Align:  linebot.FlexComponentAlignTypeCenter,
				},
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "個人健康數據服務條款",
					Size:   linebot.FlexTextSizeTypeMd,
					Color:  colorSecondary,
					Align:  linebot.FlexComponentAlignTypeCenter,
					Margin: linebot.FlexComponentMarginTypeSm,
				},
			},
		},
		Body: &linebot.BoxComponent{
			Type:    linebot.FlexComponentTypeBox,
			Layout:  linebot.FlexBoxLayoutTypeVertical,
			Spacing: linebot.FlexComponentSpacingTypeSm,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "歡迎使用糖小護健康管理服務！",
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeLg,
					Color:  colorPrimary,
					Margin: linebot.FlexComponentMarginTypeMd,
				},
				&linebot.SeparatorComponent{
					Type:   linebot.FlexComponentTypeSeparator,
					Margin: linebot.FlexComponentMarginTypeMd,
					Color:  colorDivider,
				},
				termsSection("📊 資料蒐集範圍", "• 血糖數值記錄\n• 健康諮詢對話內容\n• 上傳的醫療相關圖片\n• 使用行為統計資料"),
				termsSection("🎯 使用目的", "• 提供個人化健康建議\n• 生成專屬健康報表\n• 改善服務品質\n• 緊急健康提醒"),
				termsSection("🔒 隱私保護", "• 資料採用加密儲存\n• 不會與第三方分享\n• 可隨時要求刪除資料\n• 符合個資法規範"),
			},
		},
		Footer: &linebot.BoxComponent{
			Type:   linebot.FlexComponentTypeBox,
			Layout: linebot.FlexBoxLayoutTypeVertical,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:  linebot.FlexComponentTypeText,
					Text:  "繼續使用即表示您同意上述條款",
					Size:  linebot.FlexTextSizeTypeXs,
					Color: colorFaint,
					Align: linebot.FlexComponentAlignTypeCenter,
				},
				&linebot.SeparatorComponent{
					Type:   linebot.FlexComponentTypeSeparator,
					Margin: linebot.FlexComponentMarginTypeMd,
					Color:  colorDivider,
				},
				&linebot.BoxComponent{
					Type:    linebot.FlexComponentTypeBox,
					Layout:  linebot.FlexBoxLayoutTypeHorizontal,
					Spacing: linebot.FlexComponentSpacingTypeSm,
					Margin:  linebot.FlexComponentMarginTypeMd,
					Contents: []linebot.FlexComponent{
						&linebot.ButtonComponent{
							Type:   linebot.FlexComponentTypeButton,
							Style:  linebot.FlexButtonStyleTypeSecondary,
							Height: linebot.FlexButtonHeightTypeSm,
							Action: linebot.NewMessageAction("暫不同意", "不同意"),
						},
						&linebot.ButtonComponent{
							Type:   linebot.FlexComponentTypeButton,
							Style:  linebot.FlexButtonStyleTypePrimary,
							Height: linebot.FlexButtonHeightTypeSm,
							Color:  colorPrimary,
							Action: linebot.NewMessageAction("同意並開始使用", "同意"),
						},
					},
				},
			},
		},
	}
	return linebot.NewFlexMessage("糖小護服務條款", bubble)
}

func termsSection(title, body string) *linebot.BoxComponent {
	return &linebot.BoxComponent{
		Type:   linebot.FlexComponentTypeBox,
		Layout: linebot.FlexBoxLayoutTypeVertical,
		Contents: []linebot.FlexComponent{
			&linebot.TextComponent{
				Type:   linebot.FlexComponentTypeText,
				Text:   title,
				Weight: linebot.FlexTextWeightTypeBold,
				Size:   linebot.FlexTextSizeTypeSm,
				Color:  colorPrimary,
				Margin: linebot.FlexComponentMarginTypeLg,
			},
			&linebot.TextComponent{
				Type:   linebot.FlexComponentTypeText,
				Text:   body,
				Size:   linebot.FlexTextSizeTypeXs,
				Color:  colorMuted,
				Wrap:   true,
				Margin: linebot.FlexComponentMarginTypeSm,
			},
		},
	}
}

// welcomeMessage builds the consent-completed card.
func welcomeMessage() linebot.SendingMessage {
	bubble := &linebot.BubbleContainer{
		Type: linebot.FlexContainerTypeBubble,
		Header: &linebot.BoxComponent{
			Type:            linebot.FlexComponentTypeBox,
			Layout:          linebot.FlexBoxLayoutTypeVertical,
			BackgroundColor: colorPrimary,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "🎉 歡迎加入糖小護！",
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeXl,
					Color:  "#FFFFFF",
					Align:  linebot.FlexComponentAlignTypeCenter,
				},
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "您的專屬健康管理助手",
					Size:   linebot.FlexTextSizeTypeMd,
					Color:  colorDivider,
					Align:  linebot.FlexComponentAlignTypeCenter,
					Margin: linebot.FlexComponentMarginTypeSm,
				},
			},
		},
		Body: &linebot.BoxComponent{
			Type:   linebot.FlexComponentTypeBox,
			Layout: linebot.FlexBoxLayoutTypeVertical,
			Contents: []linebot.FlexComponent{
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "✅ 條款同意完成",
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeMd,
					Color:  colorPrimary,
					Align:  linebot.FlexComponentAlignTypeCenter,
				},
				&linebot.SeparatorComponent{
					Type:   linebot.FlexComponentTypeSeparator,
					Margin: linebot.FlexComponentMarginTypeMd,
					Color:  colorDivider,
				},
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "🩺 您現在可以：",
					Weight: linebot.FlexTextWeightTypeBold,
					Size:   linebot.FlexTextSizeTypeSm,
					Color:  colorPrimary,
					Margin: linebot.FlexComponentMarginTypeLg,
				},
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "📝 記錄每日血糖數值\n💬 諮詢健康相關問題\n📸 上傳檢查報告圖片\n📊 查看個人健康報表",
					Size:   linebot.FlexTextSizeTypeSm,
					Color:  colorMuted,
					Wrap:   true,
					Margin: linebot.FlexComponentMarginTypeSm,
				},
				&linebot.TextComponent{
					Type:   linebot.FlexComponentTypeText,
					Text:   "現在就開始輸入您的血糖數值或問我任何健康問題吧！",
					Size:   linebot.FlexTextSizeTypeSm,
					Color:  colorSecondary,
					Wrap:   true,
					Align:  linebot.FlexComponentAlignTypeCenter,
					Margin: linebot.FlexComponentMarginTypeLg,
				},
			},
		},
	}
	return linebot.NewFlexMessage("歡迎使用糖小護", bubble)
}

// featureCarouselMessage builds the feature-overview carousel. Each card's
// button sends the topic keyword the tutorial state recognizes.
func featureCarouselMessage() linebot.SendingMessage {
	cards := []struct {
		title   string
		desc    string
		keyword string
	}{
		{"📝 記錄血糖", "輸入血糖數值，隨時記錄您的健康數據", "記錄血糖"},
		{"📊 查看報表", "查看最近的血糖記錄與累計筆數", "查看報表"},
		{"💬 健康諮詢", "詢問健康相關問題，獲得貼心回覆", "健康諮詢"},
		{"📸 圖片上傳", "上傳檢查報告圖片（開發中）", "圖片上傳"},
	}

	bubbles := make([]*linebot.BubbleContainer, 0, len(cards))
	for _, card := range cards {
		bubbles = append(bubbles, &linebot.BubbleContainer{
			Type: linebot.FlexContainerTypeBubble,
			Body: &linebot.BoxComponent{
				Type:   linebot.FlexComponentTypeBox,
				Layout: linebot.FlexBoxLayoutTypeVertical,
				Contents: []linebot.FlexComponent{
					&linebot.TextComponent{
						Type:   linebot.FlexComponentTypeText,
						Text:   card.title,
						Weight: linebot.FlexTextWeightTypeBold,
						Size:   linebot.FlexTextSizeTypeLg,
						Color:  colorPrimary,
					},
					&linebot.TextComponent{
						Type:   linebot.FlexComponentTypeText,
						Text:   card.desc,
						Size:   linebot.FlexTextSizeTypeSm,
						Color:  colorMuted,
						Wrap:   true,
						Margin: linebot.FlexComponentMarginTypeMd,
					},
				},
			},
			Footer: &linebot.BoxComponent{
				Type:   linebot.FlexComponentTypeBox,
				Layout: linebot.FlexBoxLayoutTypeVertical,
				Contents: []linebot.FlexComponent{
					&linebot.ButtonComponent{
						Type:   linebot.FlexComponentTypeButton,
						Style:  linebot.FlexButtonStyleTypePrimary,
						Height: linebot.FlexButtonHeightTypeSm,
						Color:  colorPrimary,
						Action: linebot.NewMessageAction("了解更多", card.keyword),
					},
				},
			},
		})
	}

	carousel := &linebot.CarouselContainer{
		Type:     linebot.FlexContainerTypeCarousel,
		Contents: bubbles,
	}
	return linebot.NewFlexMessage("糖小護功能介紹", carousel)
}
