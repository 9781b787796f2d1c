package cards

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectIntent(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{message: "查询订单号 ORD1", want: IntentOrder},
		{message: "我的快递到哪了", want: IntentLogistics},
		{message: "订单的物流追踪", want: IntentOrder | IntentLogistics | IntentTracking},
		{message: "包裹详情", want: IntentLogistics | IntentTracking},
		{message: "运输方式有哪些", want: IntentNone},
		{message: "hello", want: IntentNone},
	}
	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			require.Equal(t, tc.want, DetectIntent(tc.message))
		})
	}
}

func TestIntentString(t *testing.T) {
	require.Equal(t, "none", IntentNone.String())
	require.Equal(t, "order+tracking", (IntentOrder | IntentTracking).String())
}
