// Package builder turns a population figure into an allocation request. It
// derives per class device counts from fixed ratios and samples each class'
// average power and availability from fixed uniform ranges.
package builder
