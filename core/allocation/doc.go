// Package allocation splits a power budget across device classes. The
// water-fill strategy distributes the budget in proportion to non-negative
// scores, caps each class at its capacity and redistributes overflow among
// classes that still have headroom. An LP strategy that concentrates the
// budget on the highest scores is available as an alternative.
package allocation
