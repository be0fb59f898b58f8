// Package prompt assembles channel-specific generation prompts from campaign
// parameters, retrieved example phrases, and trend keywords.
package prompt

import (
	"fmt"
	"strings"

	"github.com/adcraft-io/copygen/internal/retrieval"
	"github.com/adcraft-io/copygen/internal/storage"
)

// Params carries everything the builder renders into a prompt.
type Params struct {
	Channel        string
	Topic          string
	TargetAudience string
	Tone           string
	Count          int
	DiscountType   string
	AppealPoint    string
	Brand          string
	EventName      string
	ReferenceText  string
	UseEmoji       bool
	Examples       []retrieval.Phrase
	TrendKeywords  []string
}

// Build renders the generation prompt for the channel. Optional fields that
// are empty contribute nothing to the prompt, never a placeholder.
//
// The output-format blocks below are what the response parser expects; keep
// them in lockstep with the parser package.
func Build(p Params) string {
	if p.Count <= 0 {
		p.Count = 5
	}
	if p.Channel == storage.ChannelRCS {
		return buildRCS(p)
	}
	return buildAppPush(p)
}

// optionalSection renders "\n\n### {label}:\n{value}{note}" or nothing.
func optionalSection(label, value, note string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return fmt.Sprintf("\n\n### %s:\n%s%s", label, value, note)
}

// exampleContext renders the retrieved phrases as a reference section.
func exampleContext(examples []retrieval.Phrase) string {
	if len(examples) == 0 {
		return ""
	}
	lines := make([]string, len(examples))
	for i, ex := range examples {
		lines[i] = fmt.Sprintf("- %s: %s (CTR: %.2f%%, 전환율: %.2f%%)",
			ex.Title, ex.Message, ex.CTR*100, ex.ConversionRate*100)
	}
	return "\n\n### 성과 좋은 유사 문구 참고:\n" + strings.Join(lines, "\n")
}

// trendContext renders the trend keyword section. Always present when any
// keywords exist so generation stays grounded in current events.
func trendContext(keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	return "\n\n### 최신 트렌드 키워드:\n" + strings.Join(keywords, ", ")
}

func emojiInstruction(useEmoji bool) string {
	if useEmoji {
		return "\n- 이모지를 적절히 사용하여 시각적 효과를 높이세요"
	}
	return "\n- 이모지는 사용하지 마세요"
}

// rcsEmojiRule is requirement line 5 of the RCS template, toggled by
// use_emoji.
func rcsEmojiRule(useEmoji bool) string {
	if useEmoji {
		return "이모지를 적절히 사용하여 시각적 효과를 높이세요(이모지를 사용하는 경우 브랜드 양옆에 동일한 이모지를 넣어 강조)"
	}
	return "이모지는 사용하지 마세요"
}

// fallbackRCSExamples is the output-format sample used when retrieval found
// nothing to show the model.
const fallbackRCSExamples = `
1. 버튼: 지금 바로 구매하기
메시지: 뷰티 세일 진행중! ✨

신규고객 30% 할인 혜택

봄신상 뷰티템을 특가로 만나보세요! 💖

2. 버튼: 뷰티 혜택 확인하기
메시지: 지금 뷰티 세일 진행중! 🎉

최대 30% 할인에 신규고객 추가 혜택까지!

지금 바로 확인해보세요 ✨

`

func rcsExampleFormat(examples []retrieval.Phrase) string {
	if len(examples) == 0 {
		return fallbackRCSExamples
	}
	var sb strings.Builder
	for i, ex := range examples {
		if i >= 3 {
			break
		}
		title := ex.Title
		if title == "" {
			title = "버튼 텍스트"
		}
		message := ex.Message
		if message == "" {
			message = "메시지 내용"
		}
		fmt.Fprintf(&sb, "\n%d. 버튼: %s\n메시지: %s\n\n", i+1, title, message)
	}
	return sb.String()
}

func buildRCS(p Params) string {
	reference := p.ReferenceText
	if strings.TrimSpace(reference) == "" {
		reference = "없음"
	}

	return fmt.Sprintf(`
당신은 전문 마케팅 카피라이터입니다. RCS 메시지용 마케팅 문구를 %d개 생성해주세요.

### 주제:
%s%s%s

### 타겟 고객:
%s

### 톤앤매너:
%s%s%s
%s%s

### 참고 텍스트:
%s

### RCS 요구사항:
1. 버튼 텍스트는 15자 이내로 간결하고 매력적인 문구 작성
2. 메시지는 100자 이내로 작성하며 문단 단위로 줄바꿈을 두 번씩 하여 가독성 향상
3. 할인 혜택은 숫자와 함께 강조하여 표시 (예: 30%% 할인, 최대 50%% OFF)
4. 센스있는 후킹 문구로 고객의 관심을 끌어야 함
5. %s
6. 타겟 고객의 감성을 자극하는 표현 사용
7. 최신 트렌드를 자연스럽게 반영

### 출력 형식 (정확히 이 형식을 따라주세요):
%s
위와 같은 형식으로 반드시 버튼과 메시지를 모두 포함하여 출력하세요.
메시지는 문단 단위로 줄바꿈을 두 번씩 하여 가독성을 높이고, 할인 혜택을 강조하세요.

`,
		p.Count,
		p.Topic,
		optionalSection("브랜드", p.Brand, ""),
		optionalSection("행사명", p.EventName, ""),
		p.TargetAudience,
		p.Tone,
		optionalSection("할인 유형", p.DiscountType, "\n(반드시 이 할인 정보를 문구에 포함해주세요)"),
		optionalSection("소구 포인트", p.AppealPoint, "\n(고객에게 어필할 핵심 포인트를 강조해주세요)"),
		exampleContext(p.Examples),
		trendContext(p.TrendKeywords),
		reference,
		rcsEmojiRule(p.UseEmoji),
		rcsExampleFormat(p.Examples),
	)
}

func buildAppPush(p Params) string {
	emoji := emojiInstruction(p.UseEmoji)

	return fmt.Sprintf(`
앱푸시 마케팅 문구를 %d개 생성해주세요.

주제: %s%s%s
타겟: %s
톤: %s%s%s
%s%s

각 문구는 반드시 다음 형식으로 출력하세요:
1. 타이틀: [15-20자 제목]
본문: (광고) [40자 이내 내용]%s
2. 타이틀: [15-20자 제목]
본문: (광고) [40자 이내 내용]%s

타이틀과 본문을 모두 포함해야 합니다.
`,
		p.Count,
		p.Topic,
		optionalSection("브랜드", p.Brand, ""),
		optionalSection("행사명", p.EventName, ""),
		p.TargetAudience,
		p.Tone,
		optionalSection("할인 유형", p.DiscountType, "\n(반드시 이 할인 정보를 문구에 포함해주세요)"),
		optionalSection("소구 포인트", p.AppealPoint, "\n(고객에게 어필할 핵심 포인트를 강조해주세요)"),
		exampleContext(p.Examples),
		trendContext(p.TrendKeywords),
		emoji,
		emoji,
	)
}
