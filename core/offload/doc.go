// Package offload runs a complete allocation: it builds the request, scores
// the device classes, water-fills the budget and reports the result to the
// configured bus, metrics sink and publisher.
//
//	svc := offload.NewService(scorer, allocation.WaterFill{})
//	res, err := svc.AllocateByPopulation(ctx, offload.PopulationInput{
//	    Population: 100000, SignalCount: 10, Budget: 500,
//	})
package offload
