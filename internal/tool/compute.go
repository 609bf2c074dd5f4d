// 컴퓨트 관련 도구 (Lambda, EC2, EMR)

package tool

import "context"

type LambdaMetrics struct {
	inspector Inspector
}

func NewLambdaMetrics(in Inspector) *LambdaMetrics {
	return &LambdaMetrics{inspector: in}
}

func (t *LambdaMetrics) Name() string { return NameLambdaMetrics }

func (t *LambdaMetrics) Spec() Spec {
	return Spec{
		Name:        NameLambdaMetrics,
		Description: "Invocations, errors, duration and throttles of a Lambda function",
		Params: []Param{
			{Name: "function_name", Type: ParamString, Description: "Lambda function name", Required: true},
			{Name: "hours", Type: ParamNumber, Description: "Hours of metrics (default 24, max 168)"},
		},
	}
}

func (t *LambdaMetrics) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	fn, err := args.RequireString("function_name")
	if err != nil {
		return nil, err
	}
	return inspect(ctx, t.inspector, NameLambdaMetrics, map[string]any{
		"function_name": fn,
		"hours":         args.Int("hours", 24, 1, 168),
	})
}

type LambdaErrors struct {
	inspector Inspector
}

func NewLambdaErrors(in Inspector) *LambdaErrors {
	return &LambdaErrors{inspector: in}
}

func (t *LambdaErrors) Name() string { return NameLambdaErrors }

func (t *LambdaErrors) Spec() Spec {
	return Spec{
		Name:        NameLambdaErrors,
		Description: "Recent error log lines of a Lambda function (last 24 hours)",
		Params: []Param{
			{Name: "function_name", Type: ParamString, Description: "Lambda function name", Required: true},
			{Name: "limit", Type: ParamNumber, Description: "Max errors (default 20, max 100)"},
		},
	}
}

func (t *LambdaErrors) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	fn, err := args.RequireString("function_name")
	if err != nil {
		return nil, err
	}
	return inspect(ctx, t.inspector, NameLambdaErrors, map[string]any{
		"function_name": fn,
		"limit":         args.Int("limit", 20, 1, 100),
	})
}

type EC2Instances struct {
	inspector Inspector
}

func NewEC2Instances(in Inspector) *EC2Instances {
	return &EC2Instances{inspector: in}
}

func (t *EC2Instances) Name() string { return NameEC2Instances }

func (t *EC2Instances) Spec() Spec {
	return Spec{
		Name:        NameEC2Instances,
		Description: "EC2 instances with state, type and name tag",
	}
}

func (t *EC2Instances) Invoke(ctx context.Context, _ Args) (map[string]any, error) {
	return inspect(ctx, t.inspector, NameEC2Instances, map[string]any{})
}

type EMRClusterStatus struct {
	inspector Inspector
}

func NewEMRClusterStatus(in Inspector) *EMRClusterStatus {
	return &EMRClusterStatus{inspector: in}
}

func (t *EMRClusterStatus) Name() string { return NameEMRClusterStatus }

func (t *EMRClusterStatus) Spec() Spec {
	return Spec{
		Name:        NameEMRClusterStatus,
		Description: "EMR cluster state, state change reason and failed steps",
		Params: []Param{
			{Name: "cluster_id", Type: ParamString, Description: "EMR cluster id (j-XXXX)", Required: true},
		},
	}
}

func (t *EMRClusterStatus) Invoke(ctx context.Context, args Args) (map[string]any, error) {
	id, err := args.RequireString("cluster_id")
	if err != nil {
		return nil, err
	}
	return inspect(ctx, t.inspector, NameEMRClusterStatus, map[string]any{"cluster_id": id})
}
