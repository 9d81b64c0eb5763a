package notifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"arbiter/internal/decision"
	"arbiter/internal/logger"
	"arbiter/internal/pkg/circuit"

	"github.com/shopspring/decimal"
)

const eventQueueSize = 64

// EventNotifier 把订阅的引擎事件渲染成消息并异步推送。
// 推送经过熔断器，连续失败后暂停发送直到冷却结束。
type EventNotifier struct {
	sender  TextNotifier
	events  map[decision.EventType]bool
	breaker *circuit.CircuitBreaker
	queue   chan decision.Event
	dropped atomic.Int64
}

// NewEventNotifier 创建事件通知器，events 为空时不推送任何事件。
func NewEventNotifier(sender TextNotifier, events []string, breaker *circuit.CircuitBreaker) *EventNotifier {
	set := make(map[decision.EventType]bool, len(events))
	for _, evt := range events {
		set[decision.EventType(strings.TrimSpace(evt))] = true
	}
	return &EventNotifier{
		sender:  sender,
		events:  set,
		breaker: breaker,
		queue:   make(chan decision.Event, eventQueueSize),
	}
}

// OnEvent 过滤并入队，队列满时丢弃。
func (n *EventNotifier) OnEvent(evt decision.Event) {
	if !n.events[evt.Type] {
		return
	}
	select {
	case n.queue <- evt:
	default:
		n.dropped.Add(1)
	}
}

// Dropped 返回被丢弃的事件数。
func (n *EventNotifier) Dropped() int64 { return n.dropped.Load() }

// Run 消费队列直到 ctx 结束，结束前尽量发送剩余消息。
func (n *EventNotifier) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-n.queue:
			n.deliver(evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-n.queue:
					n.deliver(evt)
				default:
					return nil
				}
			}
		}
	}
}

func (n *EventNotifier) deliver(evt decision.Event) {
	body := Format(evt).RenderMarkdown()
	send := func() error { return n.sender.SendText(body) }
	var err error
	if n.breaker != nil {
		err = n.breaker.Do(send)
	} else {
		err = send()
	}
	switch {
	case err == nil:
	case errors.Is(err, circuit.ErrOpen):
		logger.Debugf("notify skipped (%s): breaker open", evt.Type)
	default:
		logger.Warnf("notify %s failed: %v", evt.Type, err)
	}
}

// Format 把事件渲染成结构化消息。
func Format(evt decision.Event) StructuredMessage {
	msg := StructuredMessage{Timestamp: evt.At}
	switch p := evt.Payload.(type) {
	case *decision.Result:
		msg.Icon, msg.Title = "✅", "决策完成"
		msg.Sections = []MessageSection{{
			Title: "结果",
			Lines: []string{
				"策略: " + p.StrategyID,
				"选项: " + p.Selected.ID,
				"置信度: " + fixed(p.Confidence),
				"效用: " + fixed(p.Metrics.Utility),
				"耗时: " + p.Duration.String(),
			},
		}, {Title: "推理", Lines: p.Reasoning}}
	case decision.FailurePayload:
		msg.Icon, msg.Title = "❌", "决策失败"
		lines := []string{fmt.Sprintf("候选数: %d", p.Options)}
		if p.StrategyID != "" {
			lines = append(lines, "策略: "+p.StrategyID)
		}
		if p.Err != nil {
			lines = append(lines, "类型: "+string(decision.KindOf(p.Err)), "错误: "+p.Err.Error())
		}
		msg.Sections = []MessageSection{{Title: "详情", Lines: lines}}
	case decision.Strategy:
		msg.Icon, msg.Title = "🧩", "策略变更"
		msg.Sections = []MessageSection{{Title: string(evt.Type), Lines: strategyLines(p)}}
	case []decision.Strategy:
		msg.Icon, msg.Title = "📈", "策略准确率已重新校准"
		lines := make([]string, 0, len(p))
		for _, st := range p {
			lines = append(lines, st.ID+": "+fixed(st.Accuracy))
		}
		if len(lines) == 0 {
			lines = append(lines, "无变化")
		}
		msg.Sections = []MessageSection{{Title: "准确率", Lines: lines}}
	case decision.Metrics:
		msg.Icon, msg.Title = "🔄", eventTitle(evt.Type)
		msg.Sections = []MessageSection{{Title: "概况", Lines: []string{
			fmt.Sprintf("策略: %d (启用 %d)", p.TotalStrategies, p.ActiveStrategies),
			fmt.Sprintf("决策: %d (失败 %d)", p.TotalDecisions, p.FailedDecisions),
		}}}
	case string:
		msg.Icon, msg.Title = "🗑", "策略已移除"
		msg.Sections = []MessageSection{{Lines: []string{"id: " + p}}}
	default:
		msg.Icon, msg.Title = "ℹ️", eventTitle(evt.Type)
	}
	if evt.TraceID != "" {
		msg.Footer = "trace: " + evt.TraceID
	}
	return msg
}

func strategyLines(st decision.Strategy) []string {
	state := "停用"
	if st.Enabled {
		state = "启用"
	}
	return []string{
		"id: " + st.ID,
		"类型: " + string(st.Type),
		"状态: " + state,
		"准确率: " + fixed(st.Accuracy),
	}
}

func eventTitle(t decision.EventType) string {
	switch t {
	case decision.EventInitialized:
		return "引擎已启动"
	case decision.EventReset:
		return "引擎已重置"
	case decision.EventConfigUpdated:
		return "配置已更新"
	default:
		return string(t)
	}
}

func fixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(3)
}
