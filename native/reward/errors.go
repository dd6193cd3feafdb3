package reward

import "errors"

var (
	ErrNotOwner          = errors.New("reward: caller is not the owner")
	ErrInvalidRewardRate = errors.New("reward: invalid reward rate")
	ErrTooEarly          = errors.New("reward: too early for a rewards push")
	ErrNoRewardsUnlocked = errors.New("reward: no rewards unlocked")
	ErrRewardsDepleted   = errors.New("reward: rewards depleted")
	ErrNoRewardsEarned   = errors.New("reward: no rewards earned")
	ErrClaimRejected     = errors.New("reward: reward claim rejected")
)
